package discord

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dynvoice-bot/internal/domain"
)

const (
	triggerChannelName = "➕ Join to create"
	maxPrefixLength    = 10
)

func (r *Router) commandTable() []*Command {
	return []*Command{
		{Name: "help", Usage: "help", Help: "Shows this message.", Handler: r.cmdHelp},
		{Name: "ping", Usage: "ping", Help: "Checks that the bot is alive.", Handler: r.cmdPing},
		{Name: "prefix", Usage: "prefix [new]", Help: "Shows or changes the command prefix.", Handler: r.cmdPrefix},
		{Name: "create", Usage: "create [template]", Help: "Creates a join-to-create voice channel. Placeholders: @user @game @position.", Settings: true, Handler: r.cmdCreate},
		{Name: "configs", Usage: "configs", Help: "Lists the join-to-create channels of this server.", Settings: true, Handler: r.cmdConfigs},
		{Name: "name", Usage: "name <channel> <template>", Help: "Changes the name template of a join-to-create channel.", Settings: true, Handler: r.cmdName},
		{Name: "limit", Usage: "limit <channel> <0-99>", Help: "Sets the user limit of the rooms (0 = no limit).", Settings: true, Handler: r.cmdLimit},
		{Name: "top", Usage: "top <channel> <on|off>", Help: "Moves new rooms to the top of their category.", Settings: true, Handler: r.cmdTop},
		{Name: "category", Usage: "category <channel> <category|none>", Help: "Creates the rooms in another category.", Settings: true, Handler: r.cmdCategory},
		{Name: "badwords", Usage: "badwords add|remove|list [word]", Help: "Words redacted from room names.", Settings: true, Handler: r.cmdBadWords},
		{Name: "textcategory", Usage: "textcategory add|remove|list [name]", Help: "Categories where every voice channel gets a private text channel.", Settings: true, Handler: r.cmdTextCategory},
	}
}

func (r *Router) cmdHelp(ctx context.Context, c *Call) error {
	e := &discordgo.MessageEmbed{
		Title:       "Dynamic voice rooms",
		Description: "Join a join-to-create channel and the bot makes you your own room.",
	}
	for _, name := range r.order {
		cmd := r.commands[name]
		help := cmd.Help
		if cmd.Settings {
			help += " *(Manage Channels)*"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  "`" + c.Prefix + cmd.Usage + "`",
			Value: help,
		})
	}
	r.replyEmbed(ctx, c.ChannelID, e)
	return nil
}

func (r *Router) cmdPing(ctx context.Context, c *Call) error {
	r.reply(ctx, c.ChannelID, "🏓 Pong!")
	return nil
}

func (r *Router) cmdPrefix(ctx context.Context, c *Call) error {
	if len(c.Args) == 0 {
		r.reply(ctx, c.ChannelID, "Current prefix is `"+c.Prefix+"`.")
		return nil
	}
	if !r.canManageSettings(c.GuildID, c.ChannelID, c.AuthorID) {
		return userErr("🔒 You need the **Manage Channels** permission to change the prefix.")
	}
	p := c.Args[0]
	if len([]rune(p)) > maxPrefixLength {
		return userErr("The prefix can be at most %d characters long.", maxPrefixLength)
	}
	if err := r.st.Prefixes.Set(c.GuildID, p); err != nil {
		return err
	}
	if err := r.st.Prefixes.Save(ctx); err != nil {
		return fmt.Errorf("guardar prefixes: %w", err)
	}
	r.reply(ctx, c.ChannelID, "✅ Prefix set to `"+p+"`.")
	return nil
}

func (r *Router) cmdCreate(ctx context.Context, c *Call) error {
	cfg := domain.DefaultVoiceConfig()
	if t := strings.Join(c.Args, " "); t != "" {
		cfg.NameTemplate = t
	}

	// el trigger va en la misma categoría que el canal donde se escribió el comando
	parentID := ""
	if ch, err := r.state.Channel(c.ChannelID); err == nil {
		parentID = ch.ParentID
	}
	trigger, err := r.rest.GuildChannelCreateComplex(c.GuildID, discordgo.GuildChannelCreateData{
		Name:     triggerChannelName,
		Type:     discordgo.ChannelTypeGuildVoice,
		ParentID: parentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("crear trigger: %w", err)
	}
	_ = r.state.ChannelAdd(trigger)

	if err := r.st.SetVoiceConfig(trigger.ID, cfg); err != nil {
		return err
	}
	if err := r.st.Configs.Save(ctx); err != nil {
		return fmt.Errorf("guardar configs: %w", err)
	}
	r.reply(ctx, c.ChannelID, fmt.Sprintf("✅ Created %s. Rooms will be named `%s`.", channelMention(trigger.ID), cfg.NameTemplate))
	return nil
}

func (r *Router) cmdConfigs(ctx context.Context, c *Call) error {
	e := &discordgo.MessageEmbed{Title: "Join-to-create channels"}
	for _, id := range r.st.VoiceConfigIDs() {
		ch, err := r.state.Channel(id)
		if err != nil || ch.GuildID != c.GuildID {
			continue
		}
		cfg, ok, err := r.st.VoiceConfig(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  ch.Name,
			Value: describeConfig(id, cfg),
		})
	}
	if len(e.Fields) == 0 {
		return userErr("No join-to-create channels yet. Use `%screate` to make one.", c.Prefix)
	}
	r.replyEmbed(ctx, c.ChannelID, e)
	return nil
}

func describeConfig(id string, cfg domain.VoiceConfig) string {
	limit := "none"
	if cfg.UserLimit > 0 {
		limit = strconv.Itoa(cfg.UserLimit)
	}
	category := "same as trigger"
	if cfg.HasCategory() {
		category = channelMention(cfg.CategoryID)
	}
	top := "off"
	if cfg.MoveToTop {
		top = "on"
	}
	return fmt.Sprintf("%s\nname: `%s`\nlimit: %s · top: %s · category: %s",
		channelMention(id), cfg.NameTemplate, limit, top, category)
}

// trigger resuelve el primer argumento a un canal configurado de este guild.
func (r *Router) trigger(c *Call) (string, domain.VoiceConfig, error) {
	id, ok := parseChannelID(c.Arg(0))
	if !ok {
		return "", domain.VoiceConfig{}, userErr("Usage: `%s%s`", c.Prefix, r.commands[c.Name].Usage)
	}
	ch, err := r.state.Channel(id)
	if err != nil || ch.GuildID != c.GuildID {
		return "", domain.VoiceConfig{}, userErr("I can't find that channel.")
	}
	cfg, ok, err := r.st.VoiceConfig(id)
	if err != nil {
		return "", domain.VoiceConfig{}, err
	}
	if !ok {
		return "", domain.VoiceConfig{}, userErr("%s is not a join-to-create channel.", channelMention(id))
	}
	return id, cfg, nil
}

func (r *Router) saveConfig(ctx context.Context, c *Call, id string, cfg domain.VoiceConfig) error {
	if err := r.st.SetVoiceConfig(id, cfg); err != nil {
		return err
	}
	if err := r.st.Configs.Save(ctx); err != nil {
		return fmt.Errorf("guardar configs: %w", err)
	}
	cfg, _, _ = r.st.VoiceConfig(id)
	r.reply(ctx, c.ChannelID, "✅ Updated.\n"+describeConfig(id, cfg))
	return nil
}

func (r *Router) cmdName(ctx context.Context, c *Call) error {
	id, cfg, err := r.trigger(c)
	if err != nil {
		return err
	}
	t := strings.Join(c.Args[1:], " ")
	if t == "" {
		return userErr("Usage: `%s%s`", c.Prefix, r.commands[c.Name].Usage)
	}
	cfg.NameTemplate = t
	return r.saveConfig(ctx, c, id, cfg)
}

func (r *Router) cmdLimit(ctx context.Context, c *Call) error {
	id, cfg, err := r.trigger(c)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(c.Arg(1))
	if err != nil || n < 0 || n > domain.MaxUserLimit {
		return userErr("The limit must be a number between 0 and %d.", domain.MaxUserLimit)
	}
	cfg.UserLimit = n
	return r.saveConfig(ctx, c, id, cfg)
}

func (r *Router) cmdTop(ctx context.Context, c *Call) error {
	id, cfg, err := r.trigger(c)
	if err != nil {
		return err
	}
	on, ok := parseBool(c.Arg(1))
	if !ok {
		return userErr("Usage: `%s%s`", c.Prefix, r.commands[c.Name].Usage)
	}
	cfg.MoveToTop = on
	return r.saveConfig(ctx, c, id, cfg)
}

func (r *Router) cmdCategory(ctx context.Context, c *Call) error {
	id, cfg, err := r.trigger(c)
	if err != nil {
		return err
	}
	raw := strings.Join(c.Args[1:], " ")
	switch {
	case raw == "":
		return userErr("Usage: `%s%s`", c.Prefix, r.commands[c.Name].Usage)
	case strings.EqualFold(raw, "none"):
		cfg.CategoryID = ""
	default:
		cat := findCategory(r.state, c.GuildID, raw)
		if cat == nil {
			return userErr("I can't find a category called `%s`.", raw)
		}
		cfg.CategoryID = cat.ID
	}
	return r.saveConfig(ctx, c, id, cfg)
}

func (r *Router) cmdBadWords(ctx context.Context, c *Call) error {
	words := r.st.BadWordsFor(c.GuildID)
	word := strings.Join(c.Args[min(1, len(c.Args)):], " ")

	switch strings.ToLower(c.Arg(0)) {
	case "list", "":
		if len(words) == 0 {
			r.reply(ctx, c.ChannelID, "No bad words configured.")
			return nil
		}
		r.reply(ctx, c.ChannelID, "Bad words: ||"+strings.Join(words, ", ")+"||")
		return nil
	case "add":
		if word == "" {
			return userErr("Usage: `%sbadwords add <word>`", c.Prefix)
		}
		if slices.Contains(words, word) {
			return userErr("`%s` is already in the list.", word)
		}
		words = append(words, word)
	case "remove":
		i := slices.Index(words, word)
		if i < 0 {
			return userErr("`%s` is not in the list.", word)
		}
		words = slices.Delete(words, i, i+1)
	default:
		return userErr("Usage: `%s%s`", c.Prefix, r.commands[c.Name].Usage)
	}

	if err := r.st.SetBadWords(c.GuildID, words); err != nil {
		return err
	}
	if err := r.st.BadWords.Save(ctx); err != nil {
		return fmt.Errorf("guardar bad words: %w", err)
	}
	r.reply(ctx, c.ChannelID, fmt.Sprintf("✅ Bad words configured: %d.", len(words)))
	return nil
}

func (r *Router) cmdTextCategory(ctx context.Context, c *Call) error {
	names := r.st.CategoryChannels()
	name := strings.ToLower(strings.Join(c.Args[min(1, len(c.Args)):], " "))

	switch strings.ToLower(c.Arg(0)) {
	case "list", "":
		if len(names) == 0 {
			r.reply(ctx, c.ChannelID, "No text categories configured.")
			return nil
		}
		r.reply(ctx, c.ChannelID, "Text categories: `"+strings.Join(names, "`, `")+"`")
		return nil
	case "add":
		if name == "" {
			return userErr("Usage: `%stextcategory add <name>`", c.Prefix)
		}
		if slices.Contains(names, name) {
			return userErr("`%s` is already in the list.", name)
		}
		names = append(names, name)
	case "remove":
		i := slices.Index(names, name)
		if i < 0 {
			return userErr("`%s` is not in the list.", name)
		}
		names = slices.Delete(names, i, i+1)
	default:
		return userErr("Usage: `%s%s`", c.Prefix, r.commands[c.Name].Usage)
	}

	if err := r.st.SetCategoryChannels(names); err != nil {
		return err
	}
	if err := r.st.Configs.Save(ctx); err != nil {
		return fmt.Errorf("guardar configs: %w", err)
	}
	r.reply(ctx, c.ChannelID, fmt.Sprintf("✅ Text categories configured: %d.", len(names)))
	return nil
}

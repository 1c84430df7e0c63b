// aca se parsean los mensajes con prefix y se despachan a los comandos
// orden: prefix → comando conocido → blacklist → permisos del bot → spam → handler
package discord

import (
	"context"
	"errors"
	"log"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dynvoice-bot/internal/telemetry"
)

// HandleMessage procesa un mensaje (nuevo o editado) como posible comando.
func (r *Router) HandleMessage(m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return
	}
	prefix := r.st.Prefix(m.GuildID, r.defaultPrefix)
	name, args, ok := splitCommand(m.Content, prefix)
	if !ok {
		return
	}
	cmd, ok := r.commands[name]
	if !ok {
		return
	}
	if r.st.Blacklist.Contains(m.Author.ID) {
		return
	}
	if !r.botCanSend(m.ChannelID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	verdict, err := r.spam.Hit(ctx, m.Author.ID)
	if err != nil {
		r.report(ctx, "cmd:"+name, err)
	}
	if !verdict.Allowed {
		if !verdict.Blacklisted {
			r.reply(ctx, m.ChannelID, verdict.Notice())
		}
		return
	}

	if m.Member != nil {
		m.Member.User = m.Author
		r.ensureMember(m.GuildID, m.Member)
	}

	call := &Call{
		Msg:       m,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  m.Author.ID,
		Prefix:    prefix,
		Name:      name,
		Args:      args,
	}
	r.invoke(ctx, cmd, call)
}

func (r *Router) invoke(ctx context.Context, cmd *Command, c *Call) {
	log.Printf("[cmd] %s by=%s guild=%s", cmd.Name, c.AuthorID, c.GuildID)
	defer step("cmd:" + cmd.Name)()

	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(ctx, "cmd:"+cmd.Name, rec)
			rctx, cancel := detached(ctx)
			defer cancel()
			r.reply(rctx, c.ChannelID, "❌ Something went wrong running that command. The bot owner has been notified.")
		}
	}()

	if cmd.Settings && !r.canManageSettings(c.GuildID, c.ChannelID, c.AuthorID) {
		r.reply(ctx, c.ChannelID, "🔒 You need the **Manage Channels** permission to do that.")
		return
	}

	err := cmd.Handler(ctx, c)
	telemetry.CommandRan(cmd.Name)
	if err == nil {
		return
	}
	// el handler pudo agotar ctx; la respuesta de error sale igual
	rctx, cancel := detached(ctx)
	defer cancel()
	var ue *UserError
	if errors.As(err, &ue) {
		r.reply(rctx, c.ChannelID, ue.Msg)
		return
	}
	id := r.report(ctx, "cmd:"+cmd.Name, err)
	msg := "❌ Something went wrong running that command."
	if id != "" {
		msg += " Incident `" + id + "`."
	}
	r.reply(rctx, c.ChannelID, msg)
}

// detached conserva los valores de ctx pero no su vencimiento.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
}

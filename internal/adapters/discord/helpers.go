package discord

import (
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var reChannelMention = regexp.MustCompile(`^<#(\d+)>$`)

func isSnowflake(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// parseChannelID acepta <#id> o el id pelado.
func parseChannelID(tok string) (string, bool) {
	if m := reChannelMention.FindStringSubmatch(tok); len(m) == 2 {
		return m[1], true
	}
	if isSnowflake(tok) {
		return tok, true
	}
	return "", false
}

func parseBool(tok string) (bool, bool) {
	switch strings.ToLower(tok) {
	case "on", "true", "yes", "y", "1", "enable":
		return true, true
	case "off", "false", "no", "n", "0", "disable":
		return false, true
	}
	return false, false
}

// splitCommand separa "<prefix><name> args..." (prefix case-insensitive).
func splitCommand(content, prefix string) (name string, args []string, ok bool) {
	if prefix == "" || len(content) < len(prefix) || !strings.EqualFold(content[:len(prefix)], prefix) {
		return "", nil, false
	}
	fields := strings.Fields(content[len(prefix):])
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

// findCategory busca una categoría del guild por id, mención o nombre (sin mayúsculas).
func findCategory(st *discordgo.State, guildID, raw string) *discordgo.Channel {
	if id, ok := parseChannelID(raw); ok {
		if ch, err := st.Channel(id); err == nil && ch.GuildID == guildID && ch.Type == discordgo.ChannelTypeGuildCategory {
			return ch
		}
	}
	g, err := st.Guild(guildID)
	if err != nil {
		return nil
	}
	st.RLock()
	defer st.RUnlock()
	for _, ch := range g.Channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(ch.Name, raw) {
			return ch
		}
	}
	return nil
}

func channelMention(id string) string { return "<#" + id + ">" }

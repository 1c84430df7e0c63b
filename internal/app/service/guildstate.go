package service

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Lecturas sobre *discordgo.State. El state se actualiza antes de los handlers,
// así que lo que se ve acá ya incluye el evento en curso.

// voiceMembers devuelve los user ids conectados a channelID.
func voiceMembers(st *discordgo.State, guildID, channelID string) []string {
	g, err := st.Guild(guildID)
	if err != nil {
		return nil
	}
	st.RLock()
	defer st.RUnlock()
	var ids []string
	for _, vs := range g.VoiceStates {
		if vs != nil && vs.ChannelID == channelID {
			ids = append(ids, vs.UserID)
		}
	}
	return ids
}

// guildChannels copia los canales del guild que cumplen keep.
func guildChannels(st *discordgo.State, guildID string, keep func(*discordgo.Channel) bool) []*discordgo.Channel {
	g, err := st.Guild(guildID)
	if err != nil {
		return nil
	}
	st.RLock()
	defer st.RUnlock()
	var out []*discordgo.Channel
	for _, c := range g.Channels {
		if c != nil && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// pairedTextChannels: textos con nombre slug(voz) en la misma categoría.
func pairedTextChannels(st *discordgo.State, voice *discordgo.Channel) []*discordgo.Channel {
	want := TextName(voice.Name)
	return guildChannels(st, voice.GuildID, func(c *discordgo.Channel) bool {
		return c.Type == discordgo.ChannelTypeGuildText && c.Name == want && c.ParentID == voice.ParentID
	})
}

// categoryName devuelve el nombre en minúscula de la categoría del canal ("" si no tiene).
func categoryName(st *discordgo.State, ch *discordgo.Channel) string {
	if ch.ParentID == "" {
		return ""
	}
	cat, err := st.Channel(ch.ParentID)
	if err != nil || cat == nil {
		return ""
	}
	return strings.ToLower(cat.Name)
}

// guildPermissions calcula los permisos a nivel guild (sin overwrites).
func guildPermissions(st *discordgo.State, guildID, userID string) int64 {
	g, err := st.Guild(guildID)
	if err != nil {
		return 0
	}
	m, err := st.Member(guildID, userID)
	if err != nil {
		return 0
	}

	st.RLock()
	defer st.RUnlock()
	if userID == g.OwnerID {
		return discordgo.PermissionAll
	}
	var perms int64
	for _, ro := range g.Roles {
		if ro.ID == g.ID {
			perms |= ro.Permissions
			continue
		}
		for _, rid := range m.Roles {
			if ro.ID == rid {
				perms |= ro.Permissions
				break
			}
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll
	}
	return perms
}

// channelPermissions: permisos efectivos en el canal (0 si falta algo en el state).
func channelPermissions(st *discordgo.State, userID, channelID string) int64 {
	p, err := st.UserChannelPermissions(userID, channelID)
	if err != nil {
		return 0
	}
	return p
}

func has(perms, want int64) bool { return perms&want == want }

func displayName(st *discordgo.State, guildID, userID string) string {
	if m, err := st.Member(guildID, userID); err == nil && m != nil {
		if n := m.DisplayName(); n != "" {
			return n
		}
	}
	return userID
}

// playingGame devuelve el nombre de la actividad "Playing" del usuario.
func playingGame(st *discordgo.State, guildID, userID string) string {
	p, err := st.Presence(guildID, userID)
	if err != nil || p == nil {
		return ""
	}
	st.RLock()
	defer st.RUnlock()
	for _, a := range p.Activities {
		if a != nil && a.Type == discordgo.ActivityTypeGame && a.Name != "" {
			return a.Name
		}
	}
	return ""
}

// textOverwrites: @everyone no ve el canal, cada miembro sí. El bot siempre
// conserva acceso; sin View Channel Discord le rechaza el edit y el delete.
func textOverwrites(guildID, botID string, members ...string) []*discordgo.PermissionOverwrite {
	out := []*discordgo.PermissionOverwrite{{
		ID:   guildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: discordgo.PermissionViewChannel,
	}}
	seen := map[string]bool{}
	if botID != "" {
		seen[botID] = true
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    botID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: botTextPerms,
		})
	}
	for _, id := range members {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    id,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel,
		})
	}
	return out
}

const (
	botRoomPerms = discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect |
		discordgo.PermissionManageChannels | discordgo.PermissionVoiceMoveMembers | discordgo.PermissionManageRoles
	botTextPerms   = discordgo.PermissionViewChannel | discordgo.PermissionManageChannels | discordgo.PermissionManageRoles
	ownerRoomPerms = discordgo.PermissionManageChannels | discordgo.PermissionVoiceMoveMembers | discordgo.PermissionManageRoles
)

// roomOverwrites: el bot y el dueño de la sala la pueden administrar.
func roomOverwrites(botID, ownerID string) []*discordgo.PermissionOverwrite {
	return []*discordgo.PermissionOverwrite{
		{ID: botID, Type: discordgo.PermissionOverwriteTypeMember, Allow: botRoomPerms},
		{ID: ownerID, Type: discordgo.PermissionOverwriteTypeMember, Allow: ownerRoomPerms},
	}
}

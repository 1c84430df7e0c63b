package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

func (r *Router) onReady() {
	ctx, cancel := context.WithTimeout(context.Background(), voiceTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(ctx, "ready", rec)
		}
	}()

	first, err := r.rooms.Launch(ctx)
	if err != nil {
		r.report(ctx, "ready", err)
	}
	if first {
		log.Printf("[voice] launch ok: %d canales administrados", r.st.Channels.Len())
	}
}

func (r *Router) onGuildCreate(g *discordgo.Guild) {
	if g == nil || g.Unavailable {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), voiceTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(ctx, "guild_create", rec)
		}
	}()
	if err := r.rooms.ReconcileGuild(ctx, g.ID); err != nil {
		r.report(ctx, "guild_create", err)
	}
}

// onVoiceState: el canal anterior viene de BeforeUpdate (lo arma el state de discordgo).
func (r *Router) onVoiceState(vs *discordgo.VoiceStateUpdate) {
	if vs == nil || vs.VoiceState == nil || vs.GuildID == "" {
		return
	}
	before := ""
	if vs.BeforeUpdate != nil {
		before = vs.BeforeUpdate.ChannelID
	}
	if before == vs.ChannelID {
		// mute/deafen/stream: no hay cambio de canal
		return
	}
	r.ensureMember(vs.GuildID, vs.Member)

	ctx, cancel := context.WithTimeout(context.Background(), voiceTimeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			r.reportPanic(ctx, "voice_state", rec)
		}
	}()
	if err := r.rooms.HandleVoiceUpdate(ctx, vs.GuildID, vs.UserID, before, vs.ChannelID); err != nil {
		r.report(ctx, "voice_state", err)
	}
}

func (r *Router) onChannelDelete(c *discordgo.Channel) {
	if c == nil || c.GuildID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), voiceTimeout)
	defer cancel()
	if err := r.rooms.OnChannelDelete(ctx, c.GuildID, c.ID); err != nil {
		r.report(ctx, "channel_delete", err)
	}
}

// ensureMember mete al miembro en el state si el gateway no lo mandó antes
// (hace falta para display name y permisos).
func (r *Router) ensureMember(guildID string, m *discordgo.Member) {
	if m == nil || m.User == nil {
		return
	}
	if _, err := r.state.Member(guildID, m.User.ID); err == nil {
		return
	}
	if m.GuildID == "" {
		m.GuildID = guildID
	}
	_ = r.state.MemberAdd(m)
}

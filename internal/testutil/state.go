package testutil

import (
	"github.com/bwmarrin/discordgo"
)

// IDs fijos para los fixtures.
const (
	BotID   = "900"
	GuildID = "100"
)

// Fixture arma un guild con permisos suficientes para el bot.
type Fixture struct {
	Guild *discordgo.Guild
	State *discordgo.State
}

// NewFixture crea un state con un guild cuyo rol bot tiene Manage Channels, Move Members
// y Manage Roles. Los canales y miembros se agregan con los helpers.
func NewFixture() *Fixture {
	st := discordgo.NewState()
	st.User = &discordgo.User{ID: BotID, Username: "dynvoice"}

	g := &discordgo.Guild{
		ID:      GuildID,
		Name:    "test guild",
		OwnerID: "1",
		Roles: []*discordgo.Role{
			{ID: GuildID, Name: "@everyone", Permissions: discordgo.PermissionViewChannel | discordgo.PermissionVoiceConnect | discordgo.PermissionSendMessages},
			{ID: "bot-role", Name: "bot", Permissions: discordgo.PermissionManageChannels | discordgo.PermissionVoiceMoveMembers | discordgo.PermissionManageRoles},
		},
		Members: []*discordgo.Member{
			{GuildID: GuildID, User: &discordgo.User{ID: BotID, Username: "dynvoice", Bot: true}, Roles: []string{"bot-role"}},
		},
		Channels:    []*discordgo.Channel{},
		VoiceStates: []*discordgo.VoiceState{},
	}
	_ = st.GuildAdd(g)
	return &Fixture{Guild: g, State: st}
}

// WithoutBotPerms deja al bot sólo con los permisos de @everyone.
func (f *Fixture) WithoutBotPerms() *Fixture {
	f.State.Lock()
	defer f.State.Unlock()
	for _, r := range f.Guild.Roles {
		if r.ID == "bot-role" {
			r.Permissions = 0
		}
	}
	return f
}

func (f *Fixture) Category(id, name string) *discordgo.Channel {
	return f.channel(&discordgo.Channel{ID: id, GuildID: GuildID, Name: name, Type: discordgo.ChannelTypeGuildCategory})
}

func (f *Fixture) Voice(id, name, parentID string) *discordgo.Channel {
	return f.channel(&discordgo.Channel{ID: id, GuildID: GuildID, Name: name, Type: discordgo.ChannelTypeGuildVoice, ParentID: parentID})
}

func (f *Fixture) Text(id, name, parentID string) *discordgo.Channel {
	return f.channel(&discordgo.Channel{ID: id, GuildID: GuildID, Name: name, Type: discordgo.ChannelTypeGuildText, ParentID: parentID})
}

func (f *Fixture) channel(c *discordgo.Channel) *discordgo.Channel {
	_ = f.State.ChannelAdd(c)
	return c
}

// Member agrega un miembro con nick (display name).
func (f *Fixture) Member(userID, nick string) *discordgo.Member {
	m := &discordgo.Member{GuildID: GuildID, Nick: nick, User: &discordgo.User{ID: userID, Username: "user" + userID}}
	_ = f.State.MemberAdd(m)
	return m
}

// Playing registra la actividad "jugando" del usuario.
func (f *Fixture) Playing(userID, game string) {
	_ = f.State.PresenceAdd(GuildID, &discordgo.Presence{
		User:       &discordgo.User{ID: userID},
		Activities: []*discordgo.Activity{{Name: game, Type: discordgo.ActivityTypeGame}},
	})
}

// Connect mueve al usuario al canal ("" = se desconecta), igual que lo haría el gateway.
func (f *Fixture) Connect(userID, channelID string) {
	_ = f.State.OnInterface(&discordgo.Session{StateEnabled: true}, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: GuildID, UserID: userID, ChannelID: channelID},
	})
}

// Has dice si el canal sigue en el state.
func (f *Fixture) Has(channelID string) bool {
	_, err := f.State.Channel(channelID)
	return err == nil
}

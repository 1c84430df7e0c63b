package service

import (
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Discord es el subconjunto REST que usan los servicios.
// Lo implementa *discordgo.Session; en tests va un fake.
type Discord interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberMove(guildID, userID string, channelID *string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ Discord = (*discordgo.Session)(nil)

// IsNotFound: el canal/usuario ya no existe en Discord (404 / Unknown Channel).
func IsNotFound(err error) bool {
	var re *discordgo.RESTError
	if !errors.As(err, &re) {
		return false
	}
	if re.Message != nil && re.Message.Code == discordgo.ErrCodeUnknownChannel {
		return true
	}
	return re.Response != nil && re.Response.StatusCode == http.StatusNotFound
}

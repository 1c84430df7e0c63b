package discord

import (
	"context"
	"log"

	"github.com/bwmarrin/discordgo"
)

const colorBlurple = 0x5865F2

// reply manda texto plano al canal; los errores sólo se loguean.
func (r *Router) reply(ctx context.Context, channelID, msg string) {
	if _, err := r.rest.ChannelMessageSend(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		log.Printf("[cmd] reply error: %v", err)
	}
}

func (r *Router) replyEmbed(ctx context.Context, channelID string, e *discordgo.MessageEmbed) {
	if e.Color == 0 {
		e.Color = colorBlurple
	}
	if _, err := r.rest.ChannelMessageSendEmbed(channelID, e, discordgo.WithContext(ctx)); err != nil {
		log.Printf("[cmd] reply embed error: %v", err)
	}
}

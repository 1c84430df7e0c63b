package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Call es un comando ya parseado: prefix + nombre + args.
type Call struct {
	Msg       *discordgo.Message
	GuildID   string
	ChannelID string
	AuthorID  string
	Prefix    string
	Name      string
	Args      []string
}

// Arg devuelve el argumento i o "".
func (c *Call) Arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

type CommandHandler func(ctx context.Context, c *Call) error

type Command struct {
	Name  string
	Usage string
	Help  string
	// Settings: requiere Manage Channels (o owner/admin)
	Settings bool
	Handler  CommandHandler
}

// UserError es un error "esperado": se le contesta tal cual al usuario.
type UserError struct{ Msg string }

func (e *UserError) Error() string { return e.Msg }

func userErr(format string, args ...any) error {
	return &UserError{Msg: fmt.Sprintf(format, args...)}
}

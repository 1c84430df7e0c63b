package discord

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/dynvoice-bot/internal/app/service"
	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
)

const (
	commandTimeout = 12 * time.Second
	voiceTimeout   = 20 * time.Second
	replyTimeout   = 5 * time.Second
)

// Deps es lo que necesita el router; State y REST suelen ser la misma sesión.
type Deps struct {
	State         *discordgo.State
	REST          service.Discord
	Stores        *storage.Stores
	Rooms         *service.VoiceRoomsService
	TextSpam      *service.SpamGuard
	Reporter      *service.Reporter
	DefaultPrefix string
	OwnerID       string
}

type Router struct {
	state    *discordgo.State
	rest     service.Discord
	st       *storage.Stores
	rooms    *service.VoiceRoomsService
	spam     *service.SpamGuard
	reporter *service.Reporter

	defaultPrefix string
	ownerID       string

	commands map[string]*Command
	order    []string
}

func NewRouter(d Deps) *Router {
	if d.TextSpam == nil {
		d.TextSpam = service.NewTextGuard(d.Stores.Blacklist)
	}
	r := &Router{
		state:         d.State,
		rest:          d.REST,
		st:            d.Stores,
		rooms:         d.Rooms,
		spam:          d.TextSpam,
		reporter:      d.Reporter,
		defaultPrefix: d.DefaultPrefix,
		ownerID:       d.OwnerID,
		commands:      map[string]*Command{},
	}
	for _, c := range r.commandTable() {
		r.commands[c.Name] = c
		r.order = append(r.order, c.Name)
	}
	return r
}

// Handlers registra los handlers del gateway en la sesión.
func (r *Router) Handlers(s *discordgo.Session) {
	s.AddHandler(func(s *discordgo.Session, ev *discordgo.Ready) {
		_ = s.UpdateWatchStatus(0, r.defaultPrefix+"help")
		r.onReady()
	})

	s.AddHandler(func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		r.onGuildCreate(g.Guild)
	})

	s.AddHandler(func(_ *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
		r.onVoiceState(vs)
	})

	s.AddHandler(func(_ *discordgo.Session, c *discordgo.ChannelDelete) {
		r.onChannelDelete(c.Channel)
	})

	// Mensajes → comandos con prefix
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		r.HandleMessage(m.Message)
	})

	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
		r.onMessageUpdate(m)
	})
}

// onMessageUpdate re-procesa un mensaje editado sólo si cambió el contenido.
// Sin el mensaje viejo en el state (BeforeUpdate nil) no se puede comparar y se ignora.
func (r *Router) onMessageUpdate(m *discordgo.MessageUpdate) {
	if m == nil || m.BeforeUpdate == nil || m.Message == nil || m.BeforeUpdate.Content == m.Content {
		return
	}
	r.HandleMessage(m.Message)
}

// report manda el error al reporter (o al log si no hay reporter, p.ej. en tests).
func (r *Router) report(ctx context.Context, where string, err error) string {
	if r.reporter == nil {
		log.Printf("[%s] %v", where, err)
		return ""
	}
	return r.reporter.Report(ctx, where, err, nil)
}

func (r *Router) reportPanic(ctx context.Context, where string, rec any) string {
	if r.reporter == nil {
		log.Printf("[%s] panic: %v", where, rec)
		return ""
	}
	return r.reporter.ReportPanic(ctx, where, rec)
}

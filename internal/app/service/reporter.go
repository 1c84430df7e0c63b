package service

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"

	"github.com/jose-valero/dynvoice-bot/internal/telemetry"
)

const (
	colorRed = 0xE74C3C
	// límite de description en un embed
	maxEmbedDescription = 4096
	notifyTimeout       = 5 * time.Second
)

// Reporter loguea errores no esperados y se los manda por DM al owner.
type Reporter struct {
	rest    Discord
	ownerID string
	logger  *slog.Logger
}

func NewReporter(rest Discord, ownerID string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{rest: rest, ownerID: ownerID, logger: logger}
}

// Report registra err con el stack y avisa al owner. Devuelve el id del incidente.
// where identifica el origen ("cmd:create", "voice", ...).
func (r *Reporter) Report(ctx context.Context, where string, err error, stack []byte) string {
	if err == nil {
		return ""
	}
	if stack == nil {
		stack = debug.Stack()
	}
	id := uuid.NewString()
	telemetry.Incident()

	log.Printf("[error] %s (%s): %v\n%s", where, id, err, stack)
	r.logger.Error("incident",
		slog.String("incident_id", id),
		slog.String("where", where),
		slog.Any("error", err),
	)

	r.notifyOwner(ctx, id, where, fmt.Sprintf("%v\n\n%s", err, stack))
	return id
}

// ReportPanic es Report para un valor recuperado con recover().
func (r *Reporter) ReportPanic(ctx context.Context, where string, rec any) string {
	return r.Report(ctx, where, fmt.Errorf("panic: %v", rec), debug.Stack())
}

// los fallos del DM se tragan: el owner puede tener los DMs cerrados.
// ctx puede venir vencido (timeouts), el DM usa su propio plazo.
func (r *Reporter) notifyOwner(ctx context.Context, id, where, trace string) {
	if r.rest == nil || r.ownerID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	dm, err := r.rest.UserChannelCreate(r.ownerID, discordgo.WithContext(ctx))
	if err != nil {
		log.Printf("[error] no pude abrir DM con el owner: %v", err)
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       "Incident " + where,
		Description: "```go\n" + clip(trace, maxEmbedDescription-12) + "\n```",
		Color:       colorRed,
		Footer:      &discordgo.MessageEmbedFooter{Text: id},
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if _, err := r.rest.ChannelMessageSendEmbed(dm.ID, embed, discordgo.WithContext(ctx)); err != nil {
		log.Printf("[error] no pude mandar DM al owner: %v", err)
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

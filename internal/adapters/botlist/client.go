package botlist

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jose-valero/dynvoice-bot/internal/telemetry"
)

// PostStats publica la cantidad de guilds y usuarios del bot.
func (c *Client) PostStats(ctx context.Context, s Stats) error {
	return c.doJSON(ctx, "POST", fmt.Sprintf("/bots/%s/stats", c.botID), s, nil)
}

// Run publica stats cada interval hasta que ctx se cancela. Postea una vez al arrancar.
// Con ErrUnauthorized deja de intentar.
func (c *Client) Run(ctx context.Context, interval time.Duration, stats func() Stats) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		if err := c.PostStats(ctx, stats()); err != nil {
			if ctx.Err() != nil {
				return
			}
			telemetry.BotListPostFailed()
			log.Printf("[botlist] post stats: %v", err)
			if errors.Is(err, ErrUnauthorized) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// janitor: lambda programada que limpia la lista de canales administrados en postgres.
// Saca ids de canales que Discord ya no conoce (404) y duplicados.
//
// El bot en marcha reescribe el documento completo en cada cambio de sala, así que
// la escritura sólo se hace si updated_at no se movió desde la lectura; si el bot
// guardó en el medio la limpieza se descarta y se reintenta en la próxima corrida.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jose-valero/dynvoice-bot/internal/app/service"
	"github.com/jose-valero/dynvoice-bot/internal/infra/storage"
)

// channelGetter es lo único que usamos de la sesión.
type channelGetter interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// prune devuelve los ids que siguen existiendo, sin repetir y en el mismo orden.
// Si Discord falla con algo que no es 404 el id se conserva.
func prune(ctx context.Context, dc channelGetter, ids []string) (kept []string, dropped int) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == "" {
			dropped++
			continue
		}
		seen[id] = struct{}{}

		_, err := dc.Channel(id, discordgo.WithContext(ctx))
		if err != nil && service.IsNotFound(err) {
			dropped++
			continue
		}
		if err != nil {
			log.Printf("[janitor] canal %s: %v (se conserva)", id, err)
		}
		kept = append(kept, id)
	}
	return kept, dropped
}

// errStale: el documento cambió entre la lectura y la escritura.
var errStale = errors.New("channels cambió desde la lectura")

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func loadChannels(ctx context.Context, pool *pgxpool.Pool) ([]string, time.Time, error) {
	var (
		body string
		at   time.Time
	)
	err := pool.QueryRow(ctx, `SELECT body::text, updated_at FROM kv_documents WHERE name = $1`, storage.StoreChannels).Scan(&body, &at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load channels: %w", err)
	}
	ids, err := storage.DecodeIDList([]byte(body))
	return ids, at, err
}

// saveChannels escribe ids sólo si el documento sigue en la versión leída (loadedAt).
func saveChannels(ctx context.Context, db execer, ids []string, loadedAt time.Time) error {
	if ids == nil {
		ids = []string{}
	}
	body, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
UPDATE kv_documents SET body = $2::jsonb, updated_at = now() WHERE name = $1 AND updated_at = $3`,
		storage.StoreChannels, string(body), loadedAt)
	if err != nil {
		return fmt.Errorf("save channels: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errStale
	}
	return nil
}

func handler(ctx context.Context) (string, error) {
	dsn := os.Getenv("DATABASE_URL")
	token := os.Getenv("BOT_TOKEN")
	if dsn == "" || token == "" {
		return "no DATABASE_URL/BOT_TOKEN", nil
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Sprintf("parse: %v", err), nil
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Sprintf("pool: %v", err), nil
	}
	defer pool.Close()

	dc, err := discordgo.New("Bot " + strings.TrimPrefix(token, "Bot "))
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, 50*time.Second)
	defer cancel()

	ids, loadedAt, err := loadChannels(cctx, pool)
	if err != nil {
		return "", err
	}
	kept, dropped := prune(cctx, dc, ids)
	if dropped == 0 {
		return fmt.Sprintf("ok: %d canales, nada que limpiar", len(ids)), nil
	}
	if err := saveChannels(cctx, pool, kept, loadedAt); errors.Is(err, errStale) {
		log.Printf("[janitor] el bot guardó durante la limpieza, no se escribe")
		return "skip: channels cambió durante la limpieza", nil
	} else if err != nil {
		return "", err
	}
	log.Printf("[janitor] %d ids eliminados, quedan %d", dropped, len(kept))
	return fmt.Sprintf("ok: %d eliminados, %d quedan", dropped, len(kept)), nil
}

func main() { lambda.Start(handler) }

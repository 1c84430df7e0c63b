package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

type Config struct {
	BotToken string
	ClientID string
	OwnerID  string

	DefaultPrefix string
	HTTPAddr      string // opcional, default :8080

	Store StoreConfig

	// discordbotlist.com (opcional; vacío = no se postean stats)
	BotListAPIKey   string
	BotListInterval time.Duration
}

// StoreConfig alcanza para abrir los stores (lo usa también dvctl).
type StoreConfig struct {
	Driver      string // json | postgres | sqlite | memory
	DataDir     string
	DatabaseURL string
	SQLitePath  string
}

// Load lee el entorno y aborta el proceso si falta algo requerido.
func Load() Config {
	cfg, err := Parse(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// Parse es Load sin log.Fatal (para tests).
func Parse(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	var missing []string
	req := func(k string) string {
		v := get(k, "")
		if v == "" {
			missing = append(missing, k)
		}
		return v
	}

	cfg := Config{
		BotToken:      req("BOT_TOKEN"),
		ClientID:      req("CLIENT_ID"),
		OwnerID:       req("OWNER_ID"),
		DefaultPrefix: get("DEFAULT_PREFIX", "dv!"),
		HTTPAddr:      get("HTTP_ADDR", ":8080"),
		BotListAPIKey: get("BOTLIST_API_KEY", ""),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("faltan envs: %s", strings.Join(missing, ", "))
	}

	store, err := ParseStore(getenv)
	if err != nil {
		return Config{}, err
	}
	cfg.Store = store

	cfg.BotListInterval = 30 * time.Minute
	if v := get("BOTLIST_INTERVAL", ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < time.Minute {
			return Config{}, fmt.Errorf("BOTLIST_INTERVAL inválido: %q", v)
		}
		cfg.BotListInterval = d
	}
	return cfg, nil
}

// ParseStore lee sólo la parte de storage.
func ParseStore(getenv func(string) string) (StoreConfig, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}
	sc := StoreConfig{
		Driver:      strings.ToLower(get("STORE_DRIVER", "json")),
		DataDir:     get("DATA_DIR", "data"),
		DatabaseURL: get("DATABASE_URL", ""),
	}
	sc.SQLitePath = get("SQLITE_PATH", sc.DataDir+"/dynvoice.db")

	switch sc.Driver {
	case "json", "memory", "sqlite":
	case "postgres", "pg":
		if sc.DatabaseURL == "" {
			return StoreConfig{}, fmt.Errorf("STORE_DRIVER=%s requiere DATABASE_URL", sc.Driver)
		}
	default:
		return StoreConfig{}, fmt.Errorf("STORE_DRIVER desconocido: %q", sc.Driver)
	}
	return sc, nil
}

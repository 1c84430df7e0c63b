package config

import (
	"strings"
	"testing"
	"time"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env(map[string]string{
		"BOT_TOKEN": "tok",
		"CLIENT_ID": "123",
		"OWNER_ID":  "456",
	}))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if cfg.DefaultPrefix != "dv!" {
		t.Errorf("prefix = %q, want dv!", cfg.DefaultPrefix)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http addr = %q", cfg.HTTPAddr)
	}
	if cfg.Store.Driver != "json" || cfg.Store.DataDir != "data" {
		t.Errorf("store = %#v", cfg.Store)
	}
	if cfg.Store.SQLitePath != "data/dynvoice.db" {
		t.Errorf("sqlite path = %q", cfg.Store.SQLitePath)
	}
	if cfg.BotListInterval != 30*time.Minute {
		t.Errorf("botlist interval = %s", cfg.BotListInterval)
	}
}

func TestParseMissingRequired(t *testing.T) {
	_, err := Parse(env(map[string]string{"BOT_TOKEN": "tok"}))
	if err == nil {
		t.Fatalf("expected error when CLIENT_ID/OWNER_ID are missing")
	}
	if !strings.Contains(err.Error(), "CLIENT_ID") || !strings.Contains(err.Error(), "OWNER_ID") {
		t.Errorf("error should name missing vars, got %v", err)
	}
}

func TestParseStoreDrivers(t *testing.T) {
	cases := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"sqlite", map[string]string{"STORE_DRIVER": "sqlite", "SQLITE_PATH": "/tmp/x.db"}, false},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}, true},
		{"postgres", map[string]string{"STORE_DRIVER": "Postgres", "DATABASE_URL": "postgres://x"}, false},
		{"unknown", map[string]string{"STORE_DRIVER": "redis"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStore(env(tc.env))
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadReadsProcessEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "tok")
	t.Setenv("CLIENT_ID", "1")
	t.Setenv("OWNER_ID", "2")
	t.Setenv("DEFAULT_PREFIX", "?")
	t.Setenv("BOTLIST_INTERVAL", "45m")
	t.Setenv("STORE_DRIVER", "memory")
	cfg := Load()
	if cfg.DefaultPrefix != "?" || cfg.BotListInterval != 45*time.Minute || cfg.Store.Driver != "memory" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
}

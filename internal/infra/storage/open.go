package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// Options elige el backend (ver config.StoreConfig).
type Options struct {
	Driver      string // json | postgres | sqlite | memory
	DataDir     string
	DatabaseURL string
	SQLitePath  string
}

// OpenBackend abre el backend pedido y, si es SQL, corre las migraciones.
func OpenBackend(ctx context.Context, o Options) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(o.Driver)) {
	case "", "json":
		return OpenFile(o.DataDir)
	case "memory":
		return NewMemoryBackend(), nil
	case "postgres", "pg":
		db, err := OpenPostgres(ctx, o.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db, DialectPostgres); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Println("[store] postgres lista y migrada")
		return NewDocumentsRepo(db, DialectPostgres), nil
	case "sqlite":
		db, err := OpenSQLite(ctx, o.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db, DialectSQLite); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Printf("[store] sqlite lista en %s", o.SQLitePath)
		return NewDocumentsRepo(db, DialectSQLite), nil
	default:
		return nil, fmt.Errorf("STORE_DRIVER desconocido: %q", o.Driver)
	}
}

// Open abre backend + stores.
func Open(ctx context.Context, o Options) (*Stores, error) {
	b, err := OpenBackend(ctx, o)
	if err != nil {
		return nil, err
	}
	st, err := OpenStores(ctx, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return st, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"
)

// DocumentsRepo es el Backend sobre la tabla kv_documents (postgres o sqlite).
type DocumentsRepo struct {
	db      *sql.DB
	dialect string
}

func NewDocumentsRepo(db *sql.DB, dialect string) *DocumentsRepo {
	return &DocumentsRepo{db: db, dialect: dialect}
}

func (r *DocumentsRepo) Load(ctx context.Context, name string) ([]byte, error) {
	q := `SELECT body::text FROM kv_documents WHERE name = $1`
	if r.dialect == DialectSQLite {
		q = `SELECT body FROM kv_documents WHERE name = ?`
	}
	var body string
	err := r.db.QueryRowContext(ctx, q, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return []byte(body), nil
}

func (r *DocumentsRepo) Save(ctx context.Context, name string, body []byte) error {
	var err error
	if r.dialect == DialectSQLite {
		_, err = r.db.ExecContext(ctx, `
INSERT INTO kv_documents (name, body, updated_at) VALUES (?, ?, ?)
ON CONFLICT (name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
`, name, string(body), time.Now().Unix())
	} else {
		_, err = r.db.ExecContext(ctx, `
INSERT INTO kv_documents (name, body) VALUES ($1, $2::jsonb)
ON CONFLICT (name) DO UPDATE SET
  body       = EXCLUDED.body,
  updated_at = now()
`, name, string(body))
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// LoadMany devuelve name -> body para los nombres que existan.
func (r *DocumentsRepo) LoadMany(ctx context.Context, names []string) (map[string][]byte, error) {
	out := map[string][]byte{}
	if len(names) == 0 {
		return out, nil
	}
	if r.dialect == DialectSQLite {
		// sqlite no tiene arrays; una query por nombre alcanza
		for _, n := range names {
			b, err := r.Load(ctx, n)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			out[n] = b
		}
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT name, body::text
  FROM kv_documents
 WHERE name = ANY($1)
`, pq.Array(names))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name, body string
		if err := rows.Scan(&name, &body); err != nil {
			return nil, err
		}
		out[name] = []byte(body)
	}
	return out, rows.Err()
}

func (r *DocumentsRepo) Close() error { return r.db.Close() }

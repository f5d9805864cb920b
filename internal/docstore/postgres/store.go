// Package postgres stores documents as JSONB rows in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"

	"pluginrefs/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS pluginrefs_indices (
	name TEXT PRIMARY KEY,
	mapping JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pluginrefs_documents (
	index_name TEXT NOT NULL,
	id TEXT NOT NULL,
	body JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (index_name, id)
);
CREATE INDEX IF NOT EXISTS pluginrefs_documents_commit
	ON pluginrefs_documents (index_name, (body->>'commitHash'));
`

// Store writes documents through database/sql with the pgx driver.
type Store struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.ExecContext(ctx, schema)
	})
	return s.schemaErr
}

func (s *Store) CreateIndex(ctx context.Context, name string, mapping docstore.Mapping) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pluginrefs_indices (name, mapping) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, string(data))
	return err
}

func (s *Store) WriteBatch(ctx context.Context, index string, docs []docstore.Document) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	query, args, err := upsertStatement(index, docs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

// upsertStatement builds one multi-row INSERT ... ON CONFLICT statement.
// Duplicate ids within a batch keep the last document.
func upsertStatement(index string, docs []docstore.Document) (string, []interface{}, error) {
	last := make(map[string]int, len(docs))
	for i, d := range docs {
		last[d.ID] = i
	}

	var b strings.Builder
	b.WriteString("INSERT INTO pluginrefs_documents (index_name, id, body) VALUES ")
	args := make([]interface{}, 0, 3*len(last))
	n := 0
	for i, d := range docs {
		if last[d.ID] != i {
			continue
		}
		body, err := json.Marshal(d.Body)
		if err != nil {
			return "", nil, fmt.Errorf("encoding document %s: %w", d.ID, err)
		}
		if n > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "($%d, $%d, $%d::jsonb)", 3*n+1, 3*n+2, 3*n+3)
		args = append(args, index, d.ID, string(body))
		n++
	}
	b.WriteString(" ON CONFLICT (index_name, id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()")
	return b.String(), args, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"pluginrefs/internal/docstore"
)

var _ docstore.Store = (*DB)(nil)

// CreateIndex records the index and its mapping. Existing indices are
// left untouched.
func (db *DB) CreateIndex(ctx context.Context, name string, mapping docstore.Mapping) error {
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO indices (name, mapping, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO NOTHING`,
		name, string(data), time.Now().UTC().Format(time.RFC3339))
	return err
}

// WriteBatch upserts docs in a single transaction.
func (db *DB) WriteBatch(ctx context.Context, index string, docs []docstore.Document) error {
	now := time.Now().UTC().Format(time.RFC3339)
	return db.WithTx(func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (index_name, id, body, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(index_name, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, d := range docs {
			body, err := json.Marshal(d.Body)
			if err != nil {
				return fmt.Errorf("encoding document %s: %w", d.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, index, d.ID, string(body), now); err != nil {
				return fmt.Errorf("writing document %s: %w", d.ID, err)
			}
		}
		return nil
	})
}

// Count returns the number of documents in an index.
func (db *DB) Count(ctx context.Context, index string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE index_name = ?", index).Scan(&n)
	return n, err
}

// Get returns a document body, or nil when the id is absent.
func (db *DB) Get(ctx context.Context, index, id string) (map[string]interface{}, error) {
	var raw string
	err := db.conn.QueryRowContext(ctx, "SELECT body FROM documents WHERE index_name = ? AND id = ?", index, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var body map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &body); err != nil {
		return nil, err
	}
	return body, nil
}

// Indices lists index names in order.
func (db *DB) Indices(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT name FROM indices ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Package docstore writes sweep results into a document store in batches.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pluginrefs/internal/errors"
)

// DefaultBatchSize is the number of documents per write.
const DefaultBatchSize = 500

// Document is one record. ID must be unique within an index; writing an
// existing ID replaces the record.
type Document struct {
	ID   string
	Body map[string]interface{}
}

// FieldType is a mapping type understood by every backend.
type FieldType string

const (
	Keyword FieldType = "keyword"
	Text    FieldType = "text"
	Date    FieldType = "date"
	Boolean FieldType = "boolean"
	Long    FieldType = "long"
	Double  FieldType = "double"
)

// Mapping maps dotted field paths to types.
type Mapping map[string]FieldType

// Store is a document store backend.
type Store interface {
	// CreateIndex creates the index if it does not exist.
	CreateIndex(ctx context.Context, name string, mapping Mapping) error
	// WriteBatch upserts docs by ID.
	WriteBatch(ctx context.Context, index string, docs []Document) error
	Close() error
}

// Snapshot identifies the checked-out commit documents are stamped with.
type Snapshot struct {
	CommitHash string
	CommitDate time.Time
	// DateLabel is the configured checkout point; empty for head.
	DateLabel string
}

// IsHead reports whether the snapshot is the current branch head.
func (s Snapshot) IsHead() bool {
	return s.DateLabel == ""
}

// IDFunc derives the stored ID of a document.
type IDFunc func(Document) string

// SnapshotID prefixes document keys with the checkout point and commit so
// that snapshots never overwrite each other.
func SnapshotID(s Snapshot) IDFunc {
	return func(d Document) string {
		return s.DateLabel + s.CommitHash + "." + d.ID
	}
}

// LatestID keeps the snapshot-independent key.
func LatestID(d Document) string {
	return d.ID
}

// IndexName builds "[prefix-]repo-kind", lowercased.
func IndexName(prefix, repo, kind string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{prefix, repo, kind} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(parts, "-"))
}

// LatestName returns the head-only companion of index.
func LatestName(index string) string {
	return index + "-latest"
}

// Indexer stamps documents with snapshot metadata and writes them in
// batches.
type Indexer struct {
	store     Store
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
	created   map[string]bool
}

// NewIndexer creates an Indexer. batchSize <= 0 uses DefaultBatchSize.
func NewIndexer(store Store, batchSize int, logger *slog.Logger) *Indexer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Indexer{
		store:     store,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
		created:   make(map[string]bool),
	}
}

// IndexDocuments writes docs to index, creating it with mapping on first
// use. Batches are written sequentially; the first failed batch aborts
// the call with an INDEX_WRITE_FAILURE error.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []Document, idFn IDFunc, snap Snapshot, index string, mapping Mapping) (int, error) {
	if !ix.created[index] {
		if err := ix.store.CreateIndex(ctx, index, mapping); err != nil {
			return 0, errors.New(errors.IndexWriteFailure, fmt.Sprintf("Failed to create index %s", index), err)
		}
		ix.created[index] = true
	}

	indexDate := ix.now().UTC().Format(time.RFC3339)
	commitDate := ""
	if !snap.CommitDate.IsZero() {
		commitDate = snap.CommitDate.UTC().Format(time.RFC3339)
	}

	written := 0
	for start := 0; start < len(docs); start += ix.batchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := start + ix.batchSize
		if end > len(docs) {
			end = len(docs)
		}
		batch := make([]Document, 0, end-start)
		for _, d := range docs[start:end] {
			body := make(map[string]interface{}, len(d.Body)+4)
			for k, v := range d.Body {
				body[k] = v
			}
			body["commitHash"] = snap.CommitHash
			body["commitDate"] = commitDate
			body["indexDate"] = indexDate
			if snap.DateLabel != "" {
				body["checkoutDate"] = snap.DateLabel
			}
			batch = append(batch, Document{ID: idFn(d), Body: body})
		}
		if err := ix.store.WriteBatch(ctx, index, batch); err != nil {
			return written, errors.New(errors.IndexWriteFailure, fmt.Sprintf("Failed to write batch to %s", index), err).WithDetails(map[string]interface{}{
				"index":  index,
				"offset": start,
				"size":   len(batch),
			})
		}
		written += len(batch)
		ix.logger.Debug("Wrote batch", "index", index, "offset", start, "size", len(batch))
	}
	ix.logger.Info("Indexed documents", "index", index, "count", written)
	return written, nil
}

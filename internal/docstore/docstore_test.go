package docstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/errors"
	"pluginrefs/internal/slogutil"
)

type recordingStore struct {
	created map[string]Mapping
	batches map[string][][]Document
	failOn  int
	writes  int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{created: map[string]Mapping{}, batches: map[string][][]Document{}}
}

func (s *recordingStore) CreateIndex(ctx context.Context, name string, mapping Mapping) error {
	s.created[name] = mapping
	return nil
}

func (s *recordingStore) WriteBatch(ctx context.Context, index string, docs []Document) error {
	s.writes++
	if s.failOn > 0 && s.writes == s.failOn {
		return fmt.Errorf("bulk rejected")
	}
	s.batches[index] = append(s.batches[index], docs)
	return nil
}

func (s *recordingStore) Close() error { return nil }

func makeDocs(n int) []Document {
	docs := make([]Document, n)
	for i := range docs {
		docs[i] = Document{ID: fmt.Sprintf("doc-%d", i), Body: map[string]interface{}{"n": i}}
	}
	return docs
}

func TestIndexDocuments_Batches(t *testing.T) {
	store := newRecordingStore()
	ix := NewIndexer(store, 0, slogutil.NewDiscardLogger())
	snap := Snapshot{CommitHash: "abc", CommitDate: time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC), DateLabel: "2021-05-01"}

	n, err := ix.IndexDocuments(context.Background(), makeDocs(1201), SnapshotID(snap), snap, "kibana-code", CodeMapping)
	require.NoError(t, err)
	assert.Equal(t, 1201, n)

	batches := store.batches["kibana-code"]
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 500)
	assert.Len(t, batches[1], 500)
	assert.Len(t, batches[2], 201)

	first := batches[0][0]
	assert.Equal(t, "2021-05-01abc.doc-0", first.ID)
	assert.Equal(t, "abc", first.Body["commitHash"])
	assert.Equal(t, "2021-05-01T00:00:00Z", first.Body["commitDate"])
	assert.Equal(t, "2021-05-01", first.Body["checkoutDate"])
	assert.NotEmpty(t, first.Body["indexDate"])
	assert.Equal(t, 0, first.Body["n"])
	assert.Contains(t, store.created, "kibana-code")
}

func TestIndexDocuments_HeadUsesLatestIDs(t *testing.T) {
	store := newRecordingStore()
	ix := NewIndexer(store, 10, slogutil.NewDiscardLogger())
	snap := Snapshot{CommitHash: "abc"}
	require.True(t, snap.IsHead())

	_, err := ix.IndexDocuments(context.Background(), makeDocs(3), LatestID, snap, LatestName("kibana-api"), APIMapping)
	require.NoError(t, err)
	batch := store.batches["kibana-api-latest"][0]
	assert.Equal(t, "doc-2", batch[2].ID)
	assert.NotContains(t, batch[0].Body, "checkoutDate")
}

func TestIndexDocuments_FailedBatch(t *testing.T) {
	store := newRecordingStore()
	store.failOn = 2
	ix := NewIndexer(store, 500, slogutil.NewDiscardLogger())

	n, err := ix.IndexDocuments(context.Background(), makeDocs(1201), LatestID, Snapshot{}, "idx", nil)
	require.Error(t, err)
	assert.Equal(t, errors.IndexWriteFailure, errors.CodeOf(err))
	assert.Equal(t, 500, n)
	assert.Len(t, store.batches["idx"], 1)
}

func TestIndexDocuments_DoesNotMutateInput(t *testing.T) {
	store := newRecordingStore()
	ix := NewIndexer(store, 500, slogutil.NewDiscardLogger())
	docs := makeDocs(1)
	_, err := ix.IndexDocuments(context.Background(), docs, LatestID, Snapshot{CommitHash: "x"}, "idx", nil)
	require.NoError(t, err)
	assert.NotContains(t, docs[0].Body, "commitHash")
}

func TestIndexName(t *testing.T) {
	assert.Equal(t, "kibana-references", IndexName("", "kibana", KindReferences))
	assert.Equal(t, "prod-kibana-api", IndexName("prod", "Kibana", KindAPI))
	assert.Equal(t, "prod-kibana-api-latest", LatestName(IndexName("prod", "kibana", KindAPI)))
}

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/docstore"
)

func TestUpsertStatement(t *testing.T) {
	query, args, err := upsertStatement("kibana-api", []docstore.Document{
		{ID: "a", Body: map[string]interface{}{"v": 1}},
		{ID: "b", Body: map[string]interface{}{"v": 2}},
		{ID: "a", Body: map[string]interface{}{"v": 3}},
	})
	require.NoError(t, err)
	assert.Contains(t, query, "($1, $2, $3::jsonb), ($4, $5, $6::jsonb) ON CONFLICT")
	require.Len(t, args, 6)
	assert.Equal(t, []interface{}{"kibana-api", "b", `{"v":2}`, "kibana-api", "a", `{"v":3}`}, args)
}

// TestStore_Live runs against a real server when PLUGINREFS_TEST_POSTGRES_DSN is set.
func TestStore_Live(t *testing.T) {
	dsn := os.Getenv("PLUGINREFS_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PLUGINREFS_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.CreateIndex(ctx, "pluginrefs-test", docstore.Mapping{"v": docstore.Long}))
	require.NoError(t, s.WriteBatch(ctx, "pluginrefs-test", []docstore.Document{{ID: "a", Body: map[string]interface{}{"v": 1}}}))
	require.NoError(t, s.WriteBatch(ctx, "pluginrefs-test", []docstore.Document{{ID: "a", Body: map[string]interface{}{"v": 2}}}))

	var v int
	require.NoError(t, s.db.QueryRowContext(ctx,
		`SELECT (body->>'v')::int FROM pluginrefs_documents WHERE index_name = $1 AND id = $2`,
		"pluginrefs-test", "a").Scan(&v))
	assert.Equal(t, 2, v)
}

package sweep

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pluginrefs/internal/config"
	"pluginrefs/internal/errors"
	"pluginrefs/internal/lock"
	"pluginrefs/internal/slogutil"
	"pluginrefs/internal/storage"
)

// fakeCheckout serves a fixed tree at every point. Points missing from
// hashes fail like a date before the branch history.
type fakeCheckout struct {
	dir    string
	hashes map[string]string
}

func (f *fakeCheckout) Dir() string { return f.dir }

func (f *fakeCheckout) CheckoutToPoint(ctx context.Context, point string) (string, error) {
	h, ok := f.hashes[point]
	if !ok {
		return "", errors.Newf(errors.CheckoutFailure, "no commit before %s", point)
	}
	return h, nil
}

func (f *fakeCheckout) CommitDate(ctx context.Context) (time.Time, error) {
	return time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC), nil
}

// lines returns n-1 comment lines followed by stmt, placing stmt on line n.
func lines(header string, n int, stmt string) string {
	var b strings.Builder
	b.WriteString(header + "\n")
	for i := 2; i < n; i++ {
		b.WriteString("// filler\n")
	}
	b.WriteString(stmt + "\n")
	return b.String()
}

// writeCrossPluginRepo lays out plugin a exporting doThing, used once
// inside a and twice from plugin b.
func writeCrossPluginRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/plugins/a/kibana.json":        `{"id": "a", "owner": {"name": "team-a"}}`,
		"src/plugins/a/public/index.ts":    "export { doThing } from './do_thing';\n",
		"src/plugins/a/public/do_thing.ts": "export function doThing() {\n  return 1;\n}\n",
		"src/plugins/a/public/internal.ts": "import { doThing } from './do_thing';\ndoThing();\n",
		"src/plugins/b/kibana.json":        `{"id": "b", "owner": {"name": "team-b"}}`,
		"src/plugins/b/file1.ts":           lines("import { doThing } from '../a/public';", 10, "doThing();"),
		"src/plugins/b/file2.ts":           lines("import { doThing } from '../a/public';", 20, "doThing();"),
	}
	writeFiles(t, root, files)
	return root
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func testConfig(points ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Repo.Name = "kibana"
	cfg.Snapshots.Points = points
	cfg.Report.Dir = ""
	return cfg
}

type harness struct {
	runner  *Runner
	store   *storage.DB
	lockDir string
}

func newHarness(t *testing.T, cfg *config.Config, checkout Checkout) *harness {
	t.Helper()
	store, err := storage.Open(storage.MemoryDSN, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	lockDir := t.TempDir()
	r := NewRunner(cfg, checkout, lock.NewFileLock(lockDir, lock.Name), store, nil, slogutil.NewDiscardLogger())
	return &harness{runner: r, store: store, lockDir: lockDir}
}

func (h *harness) count(t *testing.T, index string) int {
	t.Helper()
	n, err := h.store.Count(context.Background(), index)
	require.NoError(t, err)
	return n
}

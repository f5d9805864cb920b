package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/errors"
	"pluginrefs/internal/slogutil"
)

func gitCmd(t *testing.T, dir, date string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com",
	)
	if date != "" {
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_DATE="+date, "GIT_COMMITTER_DATE="+date)
	}
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)
	return strings.TrimSpace(string(out))
}

// originRepo creates a repository with one commit in 2020 and one in 2022.
func originRepo(t *testing.T) (dir, first, second string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir = t.TempDir()
	gitCmd(t, dir, "", "init", "-q")
	gitCmd(t, dir, "", "checkout", "-q", "-b", "main")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export const a = 1;\n"), 0644))
	gitCmd(t, dir, "", "add", ".")
	gitCmd(t, dir, "2020-01-15T10:00:00Z", "commit", "-q", "-m", "first")
	first = gitCmd(t, dir, "", "rev-parse", "HEAD")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ts"), []byte("export const b = 2;\n"), 0644))
	gitCmd(t, dir, "", "add", ".")
	gitCmd(t, dir, "2022-03-01T10:00:00Z", "commit", "-q", "-m", "second")
	second = gitCmd(t, dir, "", "rev-parse", "HEAD")
	return dir, first, second
}

func TestCheckout_CloneAndSnapshots(t *testing.T) {
	origin, first, second := originRepo(t)
	local := filepath.Join(t.TempDir(), "checkout")
	ctx := context.Background()

	c, err := Open(ctx, origin, local, Options{Branch: "main"}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
	assert.True(t, IsGitRepository(local))

	hash, err := c.CheckoutToPoint(ctx, "2021-01-01")
	require.NoError(t, err)
	assert.Equal(t, first, hash)
	_, err = os.Stat(filepath.Join(local, "b.ts"))
	assert.True(t, os.IsNotExist(err), "b.ts belongs to the later commit")

	date, err := c.CommitDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 15, 10, 0, 0, 0, time.UTC), date.UTC())

	hash, err = c.CheckoutToPoint(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second, hash)

	got, err := c.CommitHash(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, got)

	// A second Open fetches instead of cloning.
	_, err = Open(ctx, origin, local, Options{Branch: "main"}, slogutil.NewDiscardLogger())
	require.NoError(t, err)
}

func TestCheckout_DateBeforeHistory(t *testing.T) {
	origin, _, _ := originRepo(t)
	ctx := context.Background()

	c, err := Open(ctx, "", origin, Options{Branch: "main"}, slogutil.NewDiscardLogger())
	require.NoError(t, err)

	_, err = c.CheckoutToPoint(ctx, "2001-01-01")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.CheckoutFailure))
}

func TestCheckout_DateFollowsFirstParent(t *testing.T) {
	origin, _, _ := originRepo(t)
	gitCmd(t, origin, "", "checkout", "-q", "-b", "side", "HEAD~1")
	require.NoError(t, os.WriteFile(filepath.Join(origin, "side.ts"), []byte("export const s = 3;\n"), 0644))
	gitCmd(t, origin, "", "add", ".")
	gitCmd(t, origin, "2022-06-01T10:00:00Z", "commit", "-q", "-m", "side")
	gitCmd(t, origin, "", "checkout", "-q", "main")
	second := gitCmd(t, origin, "", "rev-parse", "HEAD")
	gitCmd(t, origin, "2023-01-01T10:00:00Z", "merge", "-q", "--no-ff", "-m", "merge side", "side")
	ctx := context.Background()

	c, err := Open(ctx, "", origin, Options{Branch: "main"}, slogutil.NewDiscardLogger())
	require.NoError(t, err)

	// The side commit is newer but was not on main until the merge.
	hash, err := c.CheckoutToPoint(ctx, "2022-12-01")
	require.NoError(t, err)
	assert.Equal(t, second, hash)
}

func TestCheckout_CleanKeepsListedFiles(t *testing.T) {
	origin, first, _ := originRepo(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(origin, "plugins.toml"), []byte("[[plugin]]\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(origin, "index.scip"), []byte("idx"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(origin, "stray.txt"), []byte("x"), 0644))

	c, err := Open(ctx, "", origin, Options{Branch: "main", Keep: []string{"plugins.toml", "./index.scip", ""}}, slogutil.NewDiscardLogger())
	require.NoError(t, err)

	_, err = c.CheckoutToPoint(ctx, first)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(origin, "plugins.toml"))
	assert.FileExists(t, filepath.Join(origin, "index.scip"))
	assert.NoFileExists(t, filepath.Join(origin, "stray.txt"))
}

func TestOpen_NoCheckoutNoURL(t *testing.T) {
	_, err := Open(context.Background(), "", t.TempDir(), Options{}, slogutil.NewDiscardLogger())
	require.Error(t, err)
	assert.Equal(t, errors.CheckoutFailure, errors.CodeOf(err))
}

func TestIsHead(t *testing.T) {
	assert.True(t, IsHead(""))
	assert.True(t, IsHead("head"))
	assert.True(t, IsHead("HEAD"))
	assert.False(t, IsHead("2021-01-01"))
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2021-01-01", "2021-01-01T12:00:00", "2021-01-01T12:00:00Z"} {
		_, ok := parseDate(s)
		assert.True(t, ok, s)
	}
	_, ok := parseDate("v8.0.0")
	assert.False(t, ok)
}

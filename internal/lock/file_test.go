package lock

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/errors"
)

func TestFileLock_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	first := NewFileLock(dir, "checkout")
	second := NewFileLock(dir, "checkout")
	second.owner = "other:1"

	require.NoError(t, first.Acquire(ctx))
	_, err := os.Stat(first.Path())
	require.NoError(t, err)

	err = second.Acquire(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.LockHeld, errors.CodeOf(err))

	// Release by a non-owner leaves the file in place.
	require.NoError(t, second.Release(ctx))
	_, err = os.Stat(first.Path())
	require.NoError(t, err)

	require.NoError(t, first.Release(ctx))
	_, err = os.Stat(first.Path())
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release(ctx))
}

func TestFileLock_ReplacesStaleLock(t *testing.T) {
	ctx := context.Background()
	l := NewFileLock(t.TempDir(), "checkout")
	hostname, _ := os.Hostname()
	data, err := json.Marshal(lockRecord{Owner: "dead", Hostname: hostname, PID: 99999999, Acquired: time.Now()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.Path(), data, 0644))

	require.NoError(t, l.Acquire(ctx))
	rec, err := l.read()
	require.NoError(t, err)
	assert.Equal(t, l.owner, rec.Owner)
}

func TestFileLock_ForeignHostIsNotStale(t *testing.T) {
	ctx := context.Background()
	l := NewFileLock(t.TempDir(), "checkout")
	data, err := json.Marshal(lockRecord{Owner: "remote", Hostname: "elsewhere.invalid", PID: 99999999})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.Path(), data, 0644))

	err = l.Acquire(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.LockHeld))

	require.NoError(t, l.ForceRelease(ctx))
	require.NoError(t, l.Acquire(ctx))
}

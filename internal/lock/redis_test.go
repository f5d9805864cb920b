package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pluginrefs/internal/config"
	"pluginrefs/internal/errors"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLock_AcquireHeldRelease(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	first := NewRedisLock(client, "checkout", time.Minute)
	second := NewRedisLock(client, "checkout", time.Minute)
	second.owner = "other:1"

	require.NoError(t, first.Acquire(ctx))
	assert.True(t, mr.Exists(keyPrefix+"checkout"))

	err := second.Acquire(ctx)
	require.Error(t, err)
	assert.Equal(t, errors.LockHeld, errors.CodeOf(err))

	// A non-owner release is a no-op.
	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists(keyPrefix+"checkout"))

	require.NoError(t, first.Release(ctx))
	assert.False(t, mr.Exists(keyPrefix+"checkout"))
	require.NoError(t, second.Acquire(ctx))
	require.NoError(t, second.Release(ctx))
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "checkout", time.Minute)
	ok, err := client.SetNX(ctx, l.key, "crashed:1", time.Minute).Result()
	require.NoError(t, err)
	require.True(t, ok)

	require.Error(t, l.Acquire(ctx))
	mr.FastForward(2 * time.Minute)
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Release(ctx))
}

func TestRedisLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "checkout", time.Minute)
	require.NoError(t, l.Acquire(ctx))
	defer l.Release(ctx)

	mr.FastForward(50 * time.Second)
	require.NoError(t, l.Extend(ctx))
	assert.Equal(t, time.Minute, mr.TTL(l.key))

	other := NewRedisLock(client, "checkout", time.Minute)
	other.owner = "other:1"
	assert.Error(t, other.Extend(ctx))
}

func TestRedisLock_ForceRelease(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, keyPrefix+"checkout", "crashed:1", 0).Err())
	l := NewRedisLock(client, "checkout", 0)
	assert.Equal(t, defaultTTL, l.ttl)
	require.NoError(t, l.ForceRelease(ctx))
	assert.False(t, mr.Exists(keyPrefix+"checkout"))
}

func TestNew_SelectsBackend(t *testing.T) {
	_, ok := New(config.LockConfig{}, t.TempDir()).(*FileLock)
	assert.True(t, ok)

	mr := miniredis.RunT(t)
	_, ok = New(config.LockConfig{RedisAddr: mr.Addr(), TTLSeconds: 30}, "").(*RedisLock)
	assert.True(t, ok)
}

func TestRedisLock_CloseOwnedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	l := New(config.LockConfig{RedisAddr: mr.Addr()}, "")
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Release(ctx))
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Acquire(ctx), redis.ErrClosed)
}

func TestRedisLock_CloseLeavesSharedClientOpen(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	l := NewRedisLock(client, "checkout", time.Minute)
	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Close())
	require.NoError(t, client.Ping(ctx).Err())
	require.NoError(t, l.ForceRelease(ctx))
}

package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"pluginrefs/internal/errors"
)

const (
	keyPrefix  = "pluginrefs:lock:"
	defaultTTL = 5 * time.Minute
)

// RedisLock is a SETNX lock with a TTL that a background goroutine keeps
// extending while the lock is held, so that a crashed sweep frees the
// checkout after one TTL.
type RedisLock struct {
	client *redis.Client
	key    string
	owner  string
	ttl    time.Duration
	// ownsClient is set when New dialed the client.
	ownsClient bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewRedisLock creates a lock named name. ttl <= 0 uses five minutes.
func NewRedisLock(client *redis.Client, name string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisLock{
		client: client,
		key:    keyPrefix + name,
		owner:  ownerID(),
		ttl:    ttl,
	}
}

func (l *RedisLock) Acquire(ctx context.Context) error {
	ok, err := l.client.SetNX(ctx, l.key, l.owner, l.ttl).Result()
	if err != nil {
		return errors.New(errors.InternalError, "Failed to acquire Redis lock", err)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, l.key).Result()
		return errors.New(errors.LockHeld, fmt.Sprintf("checkout is locked by %s", holder), nil).WithDetails(map[string]interface{}{
			"key":   l.key,
			"owner": holder,
		})
	}

	l.mu.Lock()
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.keepAlive(l.stop, l.done)
	l.mu.Unlock()
	return nil
}

func (l *RedisLock) keepAlive(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.ttl/3)
			err := l.Extend(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

var extendScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`)

// Extend resets the TTL of a lock held by this instance.
func (l *RedisLock) Extend(ctx context.Context) error {
	result, err := extendScript.Run(ctx, l.client, []string{l.key}, l.owner, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", l.key, err)
	}
	if result == 0 {
		return fmt.Errorf("lock %s not held by this instance", l.key)
	}
	return nil
}

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

func (l *RedisLock) Release(ctx context.Context) error {
	l.stopKeepAlive()
	_, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.owner).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

func (l *RedisLock) ForceRelease(ctx context.Context) error {
	l.stopKeepAlive()
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.key, err)
	}
	return nil
}

// Close stops the keep-alive and closes the client when the lock created
// it. A still-held lock expires after one TTL.
func (l *RedisLock) Close() error {
	l.stopKeepAlive()
	if !l.ownsClient {
		return nil
	}
	return l.client.Close()
}

func (l *RedisLock) stopKeepAlive() {
	l.mu.Lock()
	stop, done := l.stop, l.done
	l.stop, l.done = nil, nil
	l.mu.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
}

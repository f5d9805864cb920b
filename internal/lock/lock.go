// Package lock guards the shared checkout directory so that only one sweep
// moves it between snapshots at a time.
package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"pluginrefs/internal/config"
)

// Name is the lock name used for the checkout.
const Name = "checkout"

// Locker is a named mutual-exclusion lock.
type Locker interface {
	// Acquire returns a LOCK_HELD error when another owner holds the lock.
	Acquire(ctx context.Context) error
	// Release drops the lock if this instance owns it.
	Release(ctx context.Context) error
	// ForceRelease drops the lock regardless of owner.
	ForceRelease(ctx context.Context) error
	// Close frees connections the lock opened itself. It does not release
	// the lock.
	Close() error
}

// New returns a Redis lock when cfg names a Redis server and a lock file
// in dir otherwise.
func New(cfg config.LockConfig, dir string) Locker {
	if cfg.RedisAddr == "" {
		return NewFileLock(dir, Name)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	l := NewRedisLock(client, Name, time.Duration(cfg.TTLSeconds)*time.Second)
	l.ownsClient = true
	return l
}

// ownerID identifies this process as hostname:pid.
func ownerID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s:%d", hostname, os.Getpid())
}

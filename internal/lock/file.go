package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"pluginrefs/internal/errors"
)

// FileLock is an exclusive lock file. A file left behind by a process that
// no longer exists on this host is treated as stale and replaced.
type FileLock struct {
	path  string
	owner string
}

type lockRecord struct {
	Owner    string    `json:"owner"`
	Hostname string    `json:"hostname"`
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// NewFileLock creates a lock at dir/.pluginrefs-<name>.lock.
func NewFileLock(dir, name string) *FileLock {
	return &FileLock{
		path:  filepath.Join(dir, ".pluginrefs-"+name+".lock"),
		owner: ownerID(),
	}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

func (l *FileLock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return errors.New(errors.InternalError, "Failed to create lock directory", err)
	}
	err := l.create()
	if err == nil {
		return nil
	}
	if !os.IsExist(err) {
		return errors.New(errors.InternalError, "Failed to create lock file", err)
	}

	rec, readErr := l.read()
	if readErr == nil && l.stale(rec) {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return errors.New(errors.InternalError, "Failed to remove stale lock file", err)
		}
		if err := l.create(); err == nil {
			return nil
		}
	}
	return l.held(rec)
}

func (l *FileLock) create() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	hostname, _ := os.Hostname()
	rec := lockRecord{Owner: l.owner, Hostname: hostname, PID: os.Getpid(), Acquired: time.Now().UTC()}
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		f.Close()
		os.Remove(l.path)
		return err
	}
	return f.Close()
}

func (l *FileLock) read() (lockRecord, error) {
	var rec lockRecord
	data, err := os.ReadFile(l.path)
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal(data, &rec)
	return rec, err
}

// stale reports whether rec was written by a dead process on this host.
func (l *FileLock) stale(rec lockRecord) bool {
	hostname, _ := os.Hostname()
	if rec.Hostname != hostname || rec.PID <= 0 {
		return false
	}
	return !processExists(rec.PID)
}

func (l *FileLock) held(rec lockRecord) error {
	owner := rec.Owner
	if owner == "" {
		owner = "unknown"
	}
	return errors.New(errors.LockHeld, fmt.Sprintf("checkout is locked by %s", owner), nil).WithDetails(map[string]interface{}{
		"path":     l.path,
		"owner":    owner,
		"acquired": rec.Acquired,
	})
}

func (l *FileLock) Release(ctx context.Context) error {
	rec, err := l.read()
	if os.IsNotExist(err) {
		return nil
	}
	if err == nil && rec.Owner != l.owner {
		return nil
	}
	return l.ForceRelease(ctx)
}

func (l *FileLock) ForceRelease(ctx context.Context) error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Close is a no-op; a file lock holds no connections.
func (l *FileLock) Close() error { return nil }

// processExists checks if a process with the given PID exists
func processExists(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 doesn't send anything but checks if process exists
	return process.Signal(syscall.Signal(0)) == nil
}

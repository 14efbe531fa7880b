package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WriterLock provides cross-process exclusive locking around operations
// that must not overlap across QFS processes sharing one database file:
// schema migration and native vector index rebuilds. WAL mode already
// serializes SQL writers within a process; this guards the steps that
// happen outside a single transaction.
type WriterLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWriterLock creates a lock file at <dir>/.qfs.lock.
func NewWriterLock(dir string) *WriterLock {
	lockPath := filepath.Join(dir, ".qfs.lock")
	return &WriterLock{path: lockPath, flock: flock.New(lockPath)}
}

// Lock acquires the exclusive lock, blocking until available.
func (l *WriterLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquiring writer lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *WriterLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("creating lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquiring writer lock: %w", err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call on an already-unlocked WriterLock.
func (l *WriterLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing writer lock: %w", err)
	}
	l.locked = false
	return nil
}

package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterLockTryLockExcludesSecondHolder(t *testing.T) {
	dir := t.TempDir()

	first := NewWriterLock(dir)
	acquired, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	defer first.Unlock()

	second := NewWriterLock(dir)
	acquired, err = second.TryLock()
	require.NoError(t, err)
	require.False(t, acquired)
}

func TestWriterLockUnlockAllowsReacquire(t *testing.T) {
	dir := t.TempDir()

	first := NewWriterLock(dir)
	require.NoError(t, first.Lock())
	require.NoError(t, first.Unlock())

	second := NewWriterLock(dir)
	acquired, err := second.TryLock()
	require.NoError(t, err)
	require.True(t, acquired)
	require.NoError(t, second.Unlock())
}

func TestWriterLockUnlockIsSafeWhenNotLocked(t *testing.T) {
	l := NewWriterLock(t.TempDir())
	require.NoError(t, l.Unlock())
}

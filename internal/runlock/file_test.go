package runlock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile_Exclusive(t *testing.T) {
	l := NewFile(t.TempDir(), time.Hour, nil)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "label")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "label")
	assert.True(t, errors.Is(err, ErrLocked))

	other, err := l.Acquire(ctx, "digest")
	require.NoError(t, err, "names are independent")
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "label")
	require.NoError(t, err)
	again()
}

func TestFile_StaleLockIsReplaced(t *testing.T) {
	dir := t.TempDir()
	l := NewFile(dir, time.Minute, nil)

	path := filepath.Join(dir, "label.lock")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o600))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	release, err := l.Acquire(context.Background(), "label")
	require.NoError(t, err)
	defer release()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(old))
}

func TestFile_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "locks")
	release, err := NewFile(dir, 0, nil).Acquire(context.Background(), "digest")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "digest.lock"))
	assert.NoError(t, err)

	release()
	_, err = os.Stat(filepath.Join(dir, "digest.lock"))
	assert.True(t, os.IsNotExist(err))
}

func TestFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFile(t.TempDir(), 0, nil).Acquire(ctx, "label")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNoop(t *testing.T) {
	var l Locker = Noop{}
	r1, err := l.Acquire(context.Background(), "label")
	require.NoError(t, err)
	r2, err := l.Acquire(context.Background(), "label")
	require.NoError(t, err)
	r1()
	r2()
}

package runlock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/teemow/inboxbrief/internal/logging"
)

// File keeps leases as lock files in a directory. Creating the file with
// O_EXCL is the acquisition; a file older than the TTL is treated as
// abandoned and replaced.
type File struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewFile creates a file Locker in dir. A ttl <= 0 uses DefaultTTL.
func NewFile(dir string, ttl time.Duration, logger *slog.Logger) *File {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &File{dir: dir, ttl: ttl, now: time.Now, logger: logger}
}

func (l *File) path(name string) string {
	return filepath.Join(l.dir, name+".lock")
}

// Acquire creates the lock file for name.
func (l *File) Acquire(ctx context.Context, name string) (Release, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	path := l.path(name)
	f, err := l.create(path)
	if errors.Is(err, fs.ErrExist) && l.stale(path) {
		l.logger.Warn("removing stale lock", logging.Operation("runlock.acquire"), slog.String("path", path))
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("removing stale lock: %w", err)
		}
		f, err = l.create(path)
	}
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating lock file: %w", err)
	}

	_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("writing lock file: %w", werr)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				l.logger.Warn("failed to remove lock", slog.String("path", path), logging.Err(err))
			}
		})
	}, nil
}

func (l *File) create(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
}

func (l *File) stale(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return l.now().Sub(info.ModTime()) > l.ttl
}

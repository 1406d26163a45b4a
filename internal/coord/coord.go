package coord

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"docket/internal/logging"
	"docket/internal/services"
)

const (
	markerSuffix   = ".lock"
	maxBackoff     = 500 * time.Millisecond
	defaultBackoff = 25 * time.Millisecond
)

// Coordinator serializes mutations across processes with one advisory lock
// marker file per key. Acquisition is bounded: after Attempts failed tries
// the caller receives services.ErrBusy.
type Coordinator struct {
	dir      string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

// New returns a coordinator keeping markers in dir.
func New(dir string, attempts int, backoff time.Duration, logger *slog.Logger) *Coordinator {
	if attempts <= 0 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Coordinator{
		dir:      dir,
		attempts: attempts,
		backoff:  backoff,
		logger:   logging.NewComponentLogger(logger, "coord"),
	}
}

// Dir returns the marker directory.
func (c *Coordinator) Dir() string { return c.dir }

// MarkerPath returns the lock marker file for key.
func (c *Coordinator) MarkerPath(key string) string {
	return filepath.Join(c.dir, key+markerSuffix)
}

// WithLock runs fn while holding the advisory lock for key. The lock is
// released on every exit path, including errors and panics inside fn.
func (c *Coordinator) WithLock(ctx context.Context, key string, fn func() error) error {
	if strings.TrimSpace(key) == "" || strings.ContainsAny(key, `/\`) {
		return services.Wrap(services.ErrValidation, "coord", "acquire", fmt.Sprintf("invalid lock key %q", key), nil)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return services.Wrap(services.ErrStorageUnavailable, "coord", "acquire", "lock directory unavailable", err)
	}

	lock := flock.New(c.MarkerPath(key))
	if err := c.acquire(ctx, lock, key); err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.WarnWithContext(c.logger, "lock release failed", "lock_release_failed",
				logging.String("key", key),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the lock is dropped when this process exits"),
				logging.String(logging.FieldImpact, "other sessions may see busy until exit"),
			)
		}
	}()
	return fn()
}

func (c *Coordinator) acquire(ctx context.Context, lock *flock.Flock, key string) error {
	delay := c.backoff
	for attempt := 1; attempt <= c.attempts; attempt++ {
		ok, err := tryCurrent(lock)
		if err != nil {
			return services.Wrap(services.ErrStorageUnavailable, "coord", "acquire", "lock marker unavailable", err)
		}
		if ok {
			return nil
		}
		if attempt == c.attempts {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if delay *= 2; delay > maxBackoff {
			delay = maxBackoff
		}
	}
	c.logger.Debug("lock busy", logging.String("key", key), logging.Int("attempts", c.attempts))
	return services.Wrap(services.ErrBusy, "coord", "acquire", fmt.Sprintf("lock %s held by another session", key), nil)
}

// maxReopen bounds how often a marker replaced under us is reopened within
// one attempt.
const maxReopen = 3

// tryCurrent locks the marker and confirms the locked file is still the one
// at the marker path. A marker unlinked by Prune between open and flock would
// otherwise let two holders coexist on different inodes.
func tryCurrent(lock *flock.Flock) (bool, error) {
	for i := 0; i < maxReopen; i++ {
		ok, err := lock.TryLock()
		if err != nil || !ok {
			return ok, err
		}
		if holdsMarker(lock) {
			return true, nil
		}
		if err := lock.Unlock(); err != nil {
			return false, err
		}
	}
	return false, nil
}

// holdsMarker reports whether lock's open file is the file currently at its
// path.
func holdsMarker(lock *flock.Flock) bool {
	held, err := lock.Stat()
	if err != nil {
		return false
	}
	onDisk, err := os.Stat(lock.Path())
	if err != nil {
		return false
	}
	return os.SameFile(held, onDisk)
}

// Prune removes markers whose key is no longer live. A marker is only removed
// while this process holds it. A session that opened the marker before the
// unlink notices the replaced inode in tryCurrent and reopens.
func (c *Coordinator) Prune(live func(key string) bool) (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, services.Wrap(services.ErrStorageUnavailable, "coord", "prune", "read lock directory", err)
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, markerSuffix) {
			continue
		}
		key := strings.TrimSuffix(name, markerSuffix)
		if live(key) {
			continue
		}
		lock := flock.New(filepath.Join(c.dir, name))
		ok, err := lock.TryLock()
		if err != nil || !ok {
			continue
		}
		if err := os.Remove(lock.Path()); err == nil {
			removed++
		}
		_ = lock.Unlock()
	}
	if removed > 0 {
		c.logger.Info("stale lock markers pruned",
			logging.Int("count", removed),
			logging.String(logging.FieldEventType, "locks_pruned"),
		)
	}
	return removed, nil
}

package placement

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// unavailableErrors lists syscall errors that mean the share is unreachable
// rather than misconfigured.
var unavailableErrors = []error{
	syscall.ENODEV,
	syscall.ENOTCONN,
	syscall.EHOSTDOWN,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EIO,
	syscall.ESTALE,
	syscall.EACCES,
	syscall.EPERM,
	syscall.EROFS,
	syscall.ENOSPC,
	syscall.ENOTDIR,
}

// errProbeTimeout is returned when the filesystem does not answer in time.
var errProbeTimeout = errors.New("write probe timed out")

// isUnavailable reports whether err indicates an unreachable or unwritable root.
func isUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) || errors.Is(err, errProbeTimeout) {
		return true
	}
	for _, target := range unavailableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// probeWritable checks that root exists and that dir beneath it can be
// created and written. The root itself is never created. Hung network mounts
// are bounded by timeout.
func probeWritable(ctx context.Context, root, dir string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- probeDir(root, dir) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %s", errProbeTimeout, timeout, dir)
		}
		return ctx.Err()
	}
}

func probeDir(root, dir string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s: %w", root, syscall.ENOTDIR)
	}
	if err := unix.Access(root, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("access root: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("access destination: %w", err)
	}
	f, err := os.CreateTemp(dir, ".docket-probe-*")
	if err != nil {
		return fmt.Errorf("write probe: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return fmt.Errorf("remove probe: %w", err)
	}
	return nil
}

package coord_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"docket/internal/coord"
	"docket/internal/logging"
	"docket/internal/services"
)

func TestWithLockSerializesHolders(t *testing.T) {
	c := coord.New(t.TempDir(), 200, time.Millisecond, logging.NewNop())

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLock(context.Background(), "sub-1", func() error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(2 * time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
			if err != nil {
				t.Errorf("WithLock failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d concurrent holders", maxSeen)
	}
}

func TestWithLockReturnsBusyWhenBoundExhausted(t *testing.T) {
	dir := t.TempDir()
	holder := coord.New(dir, 1, time.Millisecond, nil)
	contender := coord.New(dir, 3, time.Millisecond, nil)

	release := make(chan struct{})
	acquired := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- holder.WithLock(context.Background(), "sub-2", func() error {
			close(acquired)
			<-release
			return nil
		})
	}()
	<-acquired

	err := contender.WithLock(context.Background(), "sub-2", func() error {
		t.Fatal("callback must not run while lock is held elsewhere")
		return nil
	})
	if !errors.Is(err, services.ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("holder failed: %v", err)
	}

	if err := contender.WithLock(context.Background(), "sub-2", func() error { return nil }); err != nil {
		t.Fatalf("expected lock to be free after release, got %v", err)
	}
}

func TestWithLockReleasesOnErrorAndPanic(t *testing.T) {
	c := coord.New(t.TempDir(), 1, time.Millisecond, nil)
	boom := errors.New("boom")
	if err := c.WithLock(context.Background(), "k", func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	func() {
		defer func() { _ = recover() }()
		_ = c.WithLock(context.Background(), "k", func() error { panic("crash") })
	}()

	if err := c.WithLock(context.Background(), "k", func() error { return nil }); err != nil {
		t.Fatalf("expected lock released after error and panic, got %v", err)
	}
}

func TestWithLockRejectsPathKeys(t *testing.T) {
	c := coord.New(t.TempDir(), 1, time.Millisecond, nil)
	err := c.WithLock(context.Background(), "../escape", func() error { return nil })
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPruneRemovesOnlyDeadMarkers(t *testing.T) {
	c := coord.New(t.TempDir(), 1, time.Millisecond, nil)
	for _, key := range []string{"live", "dead"} {
		if err := c.WithLock(context.Background(), key, func() error { return nil }); err != nil {
			t.Fatalf("WithLock %s: %v", key, err)
		}
	}
	removed, err := c.Prune(func(key string) bool { return key == "live" })
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 marker removed, got %d", removed)
	}
	if _, err := os.Stat(c.MarkerPath("live")); err != nil {
		t.Fatalf("live marker removed: %v", err)
	}
	if _, err := os.Stat(c.MarkerPath("dead")); !os.IsNotExist(err) {
		t.Fatalf("dead marker kept: %v", err)
	}
}

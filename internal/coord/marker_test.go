package coord

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func TestReplacedMarkerIsNotHeld(t *testing.T) {
	c := New(t.TempDir(), 1, time.Millisecond, nil)
	if err := c.WithLock(context.Background(), "sub-9", func() error { return nil }); err != nil {
		t.Fatalf("WithLock: %v", err)
	}
	path := c.MarkerPath("sub-9")

	stale := flock.New(path)
	if ok, err := stale.TryLock(); err != nil || !ok {
		t.Fatalf("TryLock = %v, %v", ok, err)
	}
	defer func() { _ = stale.Unlock() }()
	if !holdsMarker(stale) {
		t.Fatal("fresh lock should hold the marker")
	}

	// Prune unlinks the marker while the stale handle is still open.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove marker: %v", err)
	}
	if holdsMarker(stale) {
		t.Fatal("lock on an unlinked marker must not count as held")
	}

	ran := false
	if err := c.WithLock(context.Background(), "sub-9", func() error {
		ran = true
		return nil
	}); err != nil || !ran {
		t.Fatalf("WithLock after unlink = %v, ran=%v", err, ran)
	}

	replaced := flock.New(path)
	if ok, err := tryCurrent(replaced); err != nil || !ok {
		t.Fatalf("tryCurrent on recreated marker = %v, %v", ok, err)
	}
	_ = replaced.Unlock()
}

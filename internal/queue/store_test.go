package queue_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docket/internal/queue"
	"docket/internal/services"
	"docket/internal/submission"
	"docket/internal/testsupport"
)

func TestEnqueueGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	sub := testsupport.MustEnqueue(t, store, "alice", "design", "plan.pdf")
	fetched, err := store.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.SubmitterID != "alice" || fetched.Status != submission.StatusPendingTeamLead {
		t.Fatalf("unexpected fetched submission: %#v", fetched)
	}
	if fetched.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}

	if err := store.Enqueue(ctx, sub); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected duplicate enqueue to be refused, got %v", err)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if _, err := store.Get(context.Background(), "../../etc/passwd"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	sub := testsupport.NewSubmission("alice", "design", "x.txt")
	if _, err := store.Get(context.Background(), sub.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateCallbackErrorLeavesRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	sub := testsupport.MustEnqueue(t, store, "alice", "design", "plan.pdf")

	boom := errors.New("boom")
	_, err := store.Mutate(ctx, sub.ID, func(s *submission.Submission) error {
		s.Status = submission.StatusPendingAdmin
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	fetched, err := store.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Status != submission.StatusPendingTeamLead {
		t.Fatalf("record mutated despite callback error: %s", fetched.Status)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithLockAttempts(3))
	ctx := context.Background()
	seed := testsupport.MustOpenStore(t, cfg)
	sub := testsupport.MustEnqueue(t, seed, "alice", "design", "plan.pdf")

	const writers = 12
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			// Each goroutine opens its own store, like a separate desktop session.
			store, err := queue.Open(cfg, nil)
			if err != nil {
				errs <- err
				return
			}
			for {
				_, err := store.Mutate(ctx, sub.ID, func(s *submission.Submission) error {
					s.Description = fmt.Sprintf("writer-%d", n)
					s.History = append(s.History, submission.HistoryEntry{
						Status:  s.Status,
						Actor:   fmt.Sprintf("writer-%d", n),
						At:      time.Now().UTC(),
						Comment: "touch",
					})
					return nil
				})
				if services.Retryable(err) {
					time.Sleep(time.Millisecond)
					continue
				}
				errs <- err
				return
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("writer failed: %v", err)
		}
	}

	final, err := seed.Get(ctx, sub.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got := len(final.History); got != writers+1 {
		t.Fatalf("expected %d history entries, got %d", writers+1, got)
	}
	last, _ := final.LastEntry()
	if final.Description != last.Actor {
		t.Fatalf("last committer mismatch: description %q, last history actor %q", final.Description, last.Actor)
	}
}

func TestTakeRemovesOnlyOnSuccess(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()
	sub := testsupport.MustEnqueue(t, store, "alice", "design", "plan.pdf")

	if _, err := store.Take(ctx, sub.ID, func(*submission.Submission) error { return errors.New("archive down") }); err == nil {
		t.Fatal("expected take to fail")
	}
	if _, err := store.Get(ctx, sub.ID); err != nil {
		t.Fatalf("record must remain after failed take: %v", err)
	}

	taken, err := store.Take(ctx, sub.ID, func(s *submission.Submission) error {
		s.Status = submission.StatusRejectedByTeamLead
		return nil
	})
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if taken.Status != submission.StatusRejectedByTeamLead {
		t.Fatalf("expected taken record to carry mutation, got %s", taken.Status)
	}
	if _, err := store.Get(ctx, sub.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected record gone, got %v", err)
	}
}

func TestListSkipsCorruptDocumentsAndReportsThem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustEnqueue(t, store, "alice", "design", "a.pdf")
	second := testsupport.NewSubmission("bob", "ops", "b.pdf")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	if err := store.Enqueue(ctx, second); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	corrupt := testsupport.NewSubmission("eve", "ops", "c.pdf")
	if err := os.WriteFile(filepath.Join(store.Dir(), corrupt.ID+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt doc: %v", err)
	}

	items, err := store.List(ctx)
	if !errors.Is(err, services.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 readable items, got %d", len(items))
	}
	if items[0].ID != second.ID {
		t.Fatalf("expected newest first, got %s", items[0].ID)
	}

	ops, _ := store.ListByTeam(ctx, "ops")
	if len(ops) != 1 || ops[0].ID != second.ID {
		t.Fatalf("unexpected team listing: %v", ops)
	}
	mine, _ := store.ListBySubmitter(ctx, "alice")
	if len(mine) != 1 || mine[0].ID != first.ID {
		t.Fatalf("unexpected submitter listing: %v", mine)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 2 || len(health.Unreadable) != 1 {
		t.Fatalf("unexpected health: %+v", health)
	}
}

func TestPruneLocksKeepsLiveSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	live := testsupport.MustEnqueue(t, store, "alice", "design", "a.pdf")
	gone := testsupport.MustEnqueue(t, store, "alice", "design", "b.pdf")
	if err := store.Remove(ctx, gone.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	removed, err := store.PruneLocks(ctx)
	if err != nil {
		t.Fatalf("PruneLocks failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 marker pruned, got %d", removed)
	}
	if _, err := os.Stat(filepath.Join(cfg.LockDir(), live.ID+".lock")); err != nil {
		t.Fatalf("live marker removed: %v", err)
	}
}

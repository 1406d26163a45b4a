package accessreq_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"docket/internal/accessreq"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/testsupport"
)

func openStore(t *testing.T) *accessreq.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store, err := accessreq.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("accessreq.Open: %v", err)
	}
	return store
}

func TestCreateKeepsOneOpenTicketPerSubmission(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sub := testsupport.NewSubmission("alice", "design", "plan.pdf")

	first, created, err := store.Create(ctx, accessreq.Request{
		RequestedBy: "root",
		Submission:  sub,
		Destination: "/projects/design/2026",
		Error:       "permission denied",
	})
	if err != nil || !created {
		t.Fatalf("Create = %v, %v", created, err)
	}
	if first.Status != accessreq.StatusPendingManual || len(first.Remediation) == 0 {
		t.Fatalf("unexpected ticket: %#v", first)
	}

	second, created, err := store.Create(ctx, accessreq.Request{
		Submission:  sub,
		Destination: "/projects/design/2026",
		StagedPath:  "/staging/design/x/plan.pdf",
		Error:       "still offline",
	})
	if err != nil || created {
		t.Fatalf("second Create = %v, %v", created, err)
	}
	if second.ID != first.ID || second.Attempts != 2 || second.StagedPath == "" {
		t.Fatalf("expected refreshed ticket, got %#v", second)
	}

	pending, err := store.ListPending(ctx)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListPending = %d, %v", len(pending), err)
	}
}

func TestConcurrentCreateYieldsSingleTicket(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	sub := testsupport.NewSubmission("alice", "design", "plan.pdf")

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store, err := accessreq.Open(cfg, logging.NewNop())
			if err != nil {
				t.Errorf("Open: %v", err)
				return
			}
			if _, _, err := store.Create(ctx, accessreq.Request{Submission: sub, Destination: "/x", Error: "offline"}); err != nil {
				t.Errorf("Create: %v", err)
			}
		}()
	}
	wg.Wait()

	store, err := accessreq.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 || all[0].Attempts != 6 {
		t.Fatalf("expected one ticket with 6 attempts, got %d tickets", len(all))
	}
}

func TestCompleteIsIdempotentAndTerminal(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	sub := testsupport.NewSubmission("alice", "design", "plan.pdf")

	ticket, _, err := store.Create(ctx, accessreq.Request{Submission: sub, Destination: "/x", Error: "offline"})
	if err != nil {
		t.Fatal(err)
	}
	done, err := store.Complete(ctx, ticket.ID, "root")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != accessreq.StatusManuallyCompleted || done.CompletedBy != "root" || done.CompletedAt == nil {
		t.Fatalf("unexpected completed ticket: %#v", done)
	}
	again, err := store.Complete(ctx, ticket.ID, "someone-else")
	if err != nil {
		t.Fatalf("second Complete: %v", err)
	}
	if again.CompletedBy != "root" {
		t.Fatalf("closed ticket was modified: %#v", again)
	}
	auto, err := store.MarkAutoCompleted(ctx, ticket.ID, "/final")
	if err != nil || auto.Status != accessreq.StatusManuallyCompleted {
		t.Fatalf("closed ticket reopened: %#v, %v", auto, err)
	}
	if _, err := store.FindOpen(ctx, sub.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no open ticket, got %v", err)
	}

	// A new failure after closure opens a fresh ticket.
	next, created, err := store.Create(ctx, accessreq.Request{Submission: sub, Destination: "/x", Error: "offline"})
	if err != nil || !created || next.ID == ticket.ID {
		t.Fatalf("expected a new ticket, got %#v created=%v err=%v", next, created, err)
	}
}

func TestGetRejectsMalformedID(t *testing.T) {
	store := openStore(t)
	if _, err := store.Get(context.Background(), "../etc"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCompleteRacingCreateStaysClosed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()
	completer, err := accessreq.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	retrier, err := accessreq.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 40; i++ {
		sub := testsupport.NewSubmission("alice", "design", "plan.pdf")
		ticket, _, err := completer.Create(ctx, accessreq.Request{Submission: sub, Destination: "/x", Error: "offline"})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}

		var (
			wg      sync.WaitGroup
			closed  *accessreq.Request
			doneErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			closed, doneErr = completer.Complete(ctx, ticket.ID, "carol")
		}()
		go func() {
			defer wg.Done()
			if _, _, err := retrier.Create(ctx, accessreq.Request{Submission: sub, Destination: "/x", Error: "still offline"}); err != nil {
				t.Errorf("Create during Complete: %v", err)
			}
		}()
		wg.Wait()
		if doneErr != nil {
			t.Fatalf("Complete: %v", doneErr)
		}
		if closed.Status.IsOpen() {
			t.Fatalf("Complete returned an open ticket: %#v", closed)
		}
		onDisk, err := completer.Get(ctx, ticket.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if onDisk.Status != accessreq.StatusManuallyCompleted {
			t.Fatalf("iteration %d: completed ticket reopened as %s (attempts %d)", i, onDisk.Status, onDisk.Attempts)
		}
	}
}

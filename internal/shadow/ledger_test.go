package shadow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/shadow"
	"docket/internal/submission"
	"docket/internal/testsupport"
)

func TestUpdateCreatesDraftAndPersists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := shadow.New(cfg, logging.NewNop())
	ctx := context.Background()

	rec, err := ledger.Update(ctx, "alice", "plan.pdf", func(r *shadow.Record) error {
		r.Description = "first cut"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Status != submission.StatusDraft || rec.CreatedAt.IsZero() {
		t.Fatalf("expected new draft record, got %#v", rec)
	}

	reopened := shadow.New(cfg, logging.NewNop())
	got, err := reopened.Get(ctx, "alice", "plan.pdf")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Description != "first cut" {
		t.Fatalf("description not persisted: %q", got.Description)
	}
	if _, err := os.Stat(filepath.Join(cfg.LedgerRoot(), "alice", "ledger.json")); err != nil {
		t.Fatalf("expected ledger file: %v", err)
	}
}

func TestUpdateCallbackErrorLeavesLedger(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := shadow.New(cfg, logging.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	if _, err := ledger.Update(ctx, "alice", "plan.pdf", func(*shadow.Record) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	if _, err := ledger.Get(ctx, "alice", "plan.pdf"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected no record, got %v", err)
	}
}

func TestMirrorSplitsReviewerComments(t *testing.T) {
	sub := testsupport.NewSubmission("alice", "design", "plan.pdf")
	at := sub.CreatedAt
	if err := sub.Apply(submission.ActionTeamLeadApprove, "lead", "looks fine", at); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if err := sub.Apply(submission.ActionRequestChanges, "root", "fix the margins", at); err != nil {
		t.Fatalf("request changes: %v", err)
	}

	var rec shadow.Record
	rec.Mirror(sub)
	if rec.Status != submission.StatusChangesRequested || rec.SubmissionID != sub.ID {
		t.Fatalf("unexpected mirrored state: %#v", rec)
	}
	if len(rec.TeamLeadComments) != 1 || rec.TeamLeadComments[0] != "looks fine" {
		t.Fatalf("unexpected team lead comments: %v", rec.TeamLeadComments)
	}
	if len(rec.AdminComments) != 1 || rec.AdminComments[0] != "fix the margins" {
		t.Fatalf("unexpected admin comments: %v", rec.AdminComments)
	}
	if !rec.InSync(sub) {
		t.Fatal("expected mirrored record to be in sync")
	}
}

func TestListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ledger := shadow.New(cfg, logging.NewNop())
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		name := name
		if _, err := ledger.Update(ctx, "alice", name, func(r *shadow.Record) error {
			r.SubmissionID = "id-" + name
			return nil
		}); err != nil {
			t.Fatalf("Update %s: %v", name, err)
		}
	}
	records, err := ledger.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].UpdatedAt.After(records[i-1].UpdatedAt) {
			t.Fatalf("records not newest first: %v then %v", records[i-1].UpdatedAt, records[i].UpdatedAt)
		}
	}
}

func TestConcurrentUpdatesDoNotLoseRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ledger := shadow.New(cfg, logging.NewNop())
			name := string(rune('a'+i)) + ".txt"
			_, err := ledger.Update(ctx, "alice", name, func(*shadow.Record) error { return nil })
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent update: %v", err)
		}
	}
	records, err := shadow.New(cfg, logging.NewNop()).List(ctx, "alice")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 8 {
		t.Fatalf("expected 8 records, got %d", len(records))
	}
}

func TestCorruptLedgerIsIntegrityError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := filepath.Join(cfg.LedgerRoot(), "alice", "ledger.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := shadow.New(cfg, logging.NewNop()).List(context.Background(), "alice"); !errors.Is(err, services.ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

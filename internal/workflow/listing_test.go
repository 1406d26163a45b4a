package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"docket/internal/archive"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/shadow"
	"docket/internal/submission"
	"docket/internal/testsupport"
	"docket/internal/workflow"
)

func TestListScopesByRole(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	erin := submission.Principal{ID: "erin", Role: submission.RoleUser, Teams: []string{"structures"}}

	h.submit(alice, h.working("alice", "a.dwg"), "")
	h.submit(alice, h.working("alice", "b.dwg"), "bearing housing")
	h.submit(erin, h.working("erin", "c.dwg"), "")

	cases := []struct {
		name string
		p    submission.Principal
		opts workflow.ListOptions
		want int
	}{
		{name: "submitter sees own", p: alice, want: 2},
		{name: "team lead sees team", p: bob, want: 2},
		{name: "other team lead", p: dana, want: 1},
		{name: "admin sees all", p: carol, want: 3},
		{name: "admin team filter", p: carol, opts: workflow.ListOptions{Team: "structures"}, want: 1},
		{name: "search description", p: carol, opts: workflow.ListOptions{Search: "HOUSING"}, want: 1},
		{name: "status filter", p: carol, opts: workflow.ListOptions{Statuses: []submission.Status{submission.StatusApproved}}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := h.mgr.ListForActor(ctx, tc.p, tc.opts)
			if err != nil {
				t.Fatalf("ListForActor: %v", err)
			}
			if len(entries) != tc.want {
				t.Fatalf("got %d entries, want %d", len(entries), tc.want)
			}
		})
	}

	_, err := h.mgr.ListForActor(ctx, bob, workflow.ListOptions{Team: "structures"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("team lead listed another team: %v", err)
	}
}

func TestListSortsByName(t *testing.T) {
	h := newHarness(t)
	for _, name := range []string{"zeta.pdf", "Alpha.pdf", "mid.pdf"} {
		h.submit(alice, h.working("alice", name), "")
	}
	entries, err := h.mgr.ListForActor(context.Background(), carol, workflow.ListOptions{Sort: workflow.SortName})
	if err != nil {
		t.Fatalf("ListForActor: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Submission.Artifact.Name)
	}
	want := []string{"Alpha.pdf", "mid.pdf", "zeta.pdf"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestOwnerListingRepairsShadow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ledger := shadow.New(h.cfg, logging.NewNop())
	id, _ := h.toAdmin("stale.dwg")
	other := h.submit(alice, h.working("alice", "lost.dwg"), "")

	// Lose the ledger and write back only a stale copy of one record, as an
	// interrupted sync would leave it.
	if err := os.Remove(filepath.Join(h.cfg.LedgerRoot(), "alice", "ledger.json")); err != nil {
		t.Fatalf("remove ledger: %v", err)
	}
	if _, err := ledger.Update(ctx, "alice", "stale.dwg", func(rec *shadow.Record) error {
		rec.SubmissionID = id
		rec.Status = submission.StatusPendingTeamLead
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	entries, err := h.mgr.ListForActor(ctx, alice, workflow.ListOptions{})
	if err != nil {
		t.Fatalf("ListForActor: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	stale, err := ledger.Get(ctx, "alice", "stale.dwg")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stale.SubmissionID != id || stale.Status != submission.StatusPendingAdmin || len(stale.History) != 2 {
		t.Fatalf("stale record not repaired: %+v", stale)
	}
	lost, err := ledger.Get(ctx, "alice", "lost.dwg")
	if err != nil {
		t.Fatalf("missing record not rebuilt: %v", err)
	}
	if lost.SubmissionID != other {
		t.Fatalf("rebuilt record = %+v", lost)
	}
}

func TestOwnerListingIncludesDrafts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.submit(alice, h.working("alice", "draft.dwg"), "")
	if res, err := h.mgr.Withdraw(ctx, alice, id); err != nil || !res.OK {
		t.Fatalf("Withdraw = %+v, %v", res, err)
	}

	entries, err := h.mgr.ListForActor(ctx, alice, workflow.ListOptions{})
	if err != nil {
		t.Fatalf("ListForActor: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Source != workflow.SourceLedger || entries[0].Submission.Status != submission.StatusDraft {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestCommentsOnQueuedAndArchived(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id, _ := h.toAdmin("shaft.prt")

	if res, err := h.mgr.AddComment(ctx, bob, id, "looks fine"); err != nil || !res.OK {
		t.Fatalf("AddComment = %+v, %v", res, err)
	}
	h.admin(id, workflow.DecisionReject, "wrong material")
	if res, err := h.mgr.AddComment(ctx, alice, id, "will fix"); err != nil || !res.OK {
		t.Fatalf("AddComment on archived = %+v, %v", res, err)
	}

	res, err := h.mgr.AddComment(ctx, alice, "0b6f3f4e-6f7c-4a7e-9d1e-3c2f6b8a9d10", "hello")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if res.OK {
		t.Fatal("comment accepted for unknown submission")
	}
	if res, _ := h.mgr.AddComment(ctx, alice, id, "   "); res.OK {
		t.Fatal("empty comment accepted")
	}

	notes, err := h.mgr.ListComments(ctx, id)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(notes) != 2 || notes[0].Actor != "bob" || notes[1].Actor != "alice" {
		t.Fatalf("comments = %+v", notes)
	}
	entries, err := h.mgr.ListForActor(ctx, carol, workflow.ListOptions{})
	if err != nil {
		t.Fatalf("ListForActor: %v", err)
	}
	if len(entries) != 1 || entries[0].Comments != 2 || entries[0].Bucket != archive.BucketRejected {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestReconcileDropsArchivedQueueEntries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, h.cfg)
	stuck := testsupport.MustEnqueue(t, store, "alice", "design", "stuck.dwg")
	live := testsupport.MustEnqueue(t, store, "alice", "design", "live.dwg")

	arch, err := archive.Open(ctx, h.cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("archive.Open: %v", err)
	}
	closed := stuck.Clone()
	closed.Status = submission.StatusRejectedByTeamLead
	if _, err := arch.Put(ctx, closed); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := arch.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	report, err := h.mgr.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(report.RemovedFromQueue) != 1 || report.RemovedFromQueue[0] != stuck.ID {
		t.Fatalf("report = %+v", report)
	}
	if _, err := store.Get(ctx, stuck.ID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("stale queue entry kept: %v", err)
	}
	if _, err := store.Get(ctx, live.ID); err != nil {
		t.Fatalf("live entry removed: %v", err)
	}
}

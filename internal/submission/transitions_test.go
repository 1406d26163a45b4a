package submission_test

import (
	"errors"
	"testing"
	"time"

	"docket/internal/submission"
)

func newPending() *submission.Submission {
	return &submission.Submission{
		ID:          "s1",
		SubmitterID: "alice",
		Team:        "design",
		Status:      submission.StatusPendingTeamLead,
		Artifact:    submission.Artifact{OwnerID: "alice", Name: "plan.pdf"},
	}
}

func TestGraphNeverSkipsReviewStage(t *testing.T) {
	for _, action := range []submission.Action{submission.ActionAdminApprove, submission.ActionAdminReject} {
		if _, err := submission.Next(submission.StatusPendingTeamLead, action); err == nil {
			t.Fatalf("admin action %s must not apply to pending team lead", action)
		}
	}
	if _, err := submission.Next(submission.StatusDraft, submission.ActionTeamLeadApprove); err == nil {
		t.Fatal("draft must not be approvable")
	}
	for _, status := range []submission.Status{submission.StatusApproved, submission.StatusRejectedByAdmin} {
		for _, action := range []submission.Action{
			submission.ActionSubmit, submission.ActionTeamLeadApprove, submission.ActionTeamLeadReject,
			submission.ActionAdminApprove, submission.ActionAdminReject, submission.ActionRequestChanges,
			submission.ActionWithdraw, submission.ActionResubmit,
		} {
			var terr *submission.TransitionError
			if _, err := submission.Next(status, action); !errors.As(err, &terr) {
				t.Fatalf("%s must have no outgoing edge, found %s", status, action)
			}
		}
	}
}

func TestApplyFullApprovalChain(t *testing.T) {
	s := newPending()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := s.Apply(submission.ActionTeamLeadApprove, "bob", "", now); err != nil {
		t.Fatalf("team lead approve failed: %v", err)
	}
	if s.Status != submission.StatusPendingAdmin || s.TeamLeadActor != "bob" {
		t.Fatalf("unexpected state after team lead approve: %+v", s)
	}
	if err := s.Apply(submission.ActionAdminApprove, "carol", "ok", now.Add(time.Hour)); err != nil {
		t.Fatalf("admin approve failed: %v", err)
	}
	if s.Status != submission.StatusApproved || s.AdminActor != "carol" {
		t.Fatalf("unexpected state after admin approve: %+v", s)
	}
	if len(s.History) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(s.History))
	}
	if last, _ := s.LastEntry(); last.Comment != "ok" || last.Actor != "carol" {
		t.Fatalf("unexpected last entry %+v", last)
	}
}

func TestApplyRequiresReasonWithoutMutating(t *testing.T) {
	s := newPending()
	err := s.Apply(submission.ActionTeamLeadReject, "bob", "   ", time.Now())
	if !errors.Is(err, submission.ErrReasonRequired) {
		t.Fatalf("expected ErrReasonRequired, got %v", err)
	}
	if s.Status != submission.StatusPendingTeamLead || len(s.History) != 0 || s.TeamLeadActor != "" {
		t.Fatalf("submission mutated on refused action: %+v", s)
	}
}

func TestApplyOutOfStateReturnsTransitionError(t *testing.T) {
	s := newPending()
	s.Status = submission.StatusApproved
	err := s.Apply(submission.ActionWithdraw, "alice", "", time.Now())
	var terr *submission.TransitionError
	if !errors.As(err, &terr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if terr.From != submission.StatusApproved {
		t.Fatalf("unexpected from status %s", terr.From)
	}
}

func TestRequestChangesRecordsStageActor(t *testing.T) {
	s := newPending()
	if err := s.Apply(submission.ActionRequestChanges, "bob", "fix page 2", time.Now()); err != nil {
		t.Fatalf("request changes failed: %v", err)
	}
	if s.TeamLeadActor != "bob" || s.AdminActor != "" {
		t.Fatalf("expected team lead actor recorded, got %+v", s)
	}
	if len(s.RejectionReasons) != 1 || s.RejectionReasons[0] != "fix page 2" {
		t.Fatalf("unexpected reasons %v", s.RejectionReasons)
	}
	if !s.Status.IsResubmittable() {
		t.Fatal("changes requested must be resubmittable")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := newPending()
	s.Tags = []string{"a"}
	s.Placement = &submission.PlacementInfo{Outcome: submission.PlacementPlaced}
	c := s.Clone()
	c.Tags[0] = "b"
	c.Placement.Outcome = submission.PlacementStaged
	if s.Tags[0] != "a" || s.Placement.Outcome != submission.PlacementPlaced {
		t.Fatal("clone shares state with original")
	}
}

func TestParseStatusAndRole(t *testing.T) {
	if st, ok := submission.ParseStatus("Pending Admin"); !ok || st != submission.StatusPendingAdmin {
		t.Fatalf("unexpected parse result %q %v", st, ok)
	}
	if _, ok := submission.ParseStatus("archived"); ok {
		t.Fatal("unexpected status accepted")
	}
	if role, ok := submission.ParseRole("Lead"); !ok || role != submission.RoleTeamLead {
		t.Fatalf("unexpected role %q", role)
	}
	p := submission.Principal{ID: "bob", Role: submission.RoleTeamLead, Teams: []string{" ", "design", "ops"}}
	if p.PrimaryTeam() != "design" {
		t.Fatalf("unexpected primary team %q", p.PrimaryTeam())
	}
	if err := (submission.Principal{ID: "x", Role: submission.RoleTeamLead}).Validate(); err == nil {
		t.Fatal("team lead without team must be invalid")
	}
	alias := submission.Principal{ID: "bob", Role: "lead", Teams: []string{"design"}}
	if err := alias.Validate(); err == nil {
		t.Fatal("role alias must be parsed before it reaches a principal")
	}
}

func TestNormalizeTags(t *testing.T) {
	got := submission.NormalizeTags([]string{" q1 ", "", "Q1", "budget"})
	if len(got) != 2 || got[0] != "q1" || got[1] != "budget" {
		t.Fatalf("unexpected tags %v", got)
	}
}

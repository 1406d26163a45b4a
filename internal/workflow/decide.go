package workflow

import (
	"context"
	"fmt"

	"docket/internal/accessreq"
	"docket/internal/logging"
	"docket/internal/notifications"
	"docket/internal/placement"
	"docket/internal/services"
	"docket/internal/shadow"
	"docket/internal/submission"
)

func teamLeadAction(d Decision) (submission.Action, bool) {
	switch d {
	case DecisionApprove:
		return submission.ActionTeamLeadApprove, true
	case DecisionReject:
		return submission.ActionTeamLeadReject, true
	case DecisionRequestChanges:
		return submission.ActionRequestChanges, true
	}
	return "", false
}

func adminAction(d Decision) (submission.Action, bool) {
	switch d {
	case DecisionApprove:
		return submission.ActionAdminApprove, true
	case DecisionReject:
		return submission.ActionAdminReject, true
	case DecisionRequestChanges:
		return submission.ActionRequestChanges, true
	}
	return "", false
}

// DecideTeamLead records the first-stage review. Team leads act only on
// submissions of their own first team. Approval forwards the submission to
// admin review; rejection and change requests archive it.
func (m *Manager) DecideTeamLead(ctx context.Context, p submission.Principal, id string, decision Decision, reason string) (Result, error) {
	ctx = m.opContext(ctx, "decide_team_lead", p, id)
	if err := m.requireRole(p, submission.RoleTeamLead); err != nil {
		return m.settle(ctx, err)
	}
	action, ok := teamLeadAction(decision)
	if !ok {
		return m.settle(ctx, services.Wrap(services.ErrValidation, "workflow", "decide", fmt.Sprintf("unknown decision %q", decision), nil))
	}
	team := p.PrimaryTeam()
	check := func(sub *submission.Submission) error {
		if sub.Status != submission.StatusPendingTeamLead {
			return outOfStage(sub.Status, action)
		}
		if sub.Team != team {
			return services.Wrap(services.ErrValidation, "workflow", "decide", ReasonTeamMismatch, nil)
		}
		return m.applyAction(sub, action, p.ID, reason)
	}

	var (
		sub *submission.Submission
		err error
	)
	if action == submission.ActionTeamLeadApprove {
		sub, err = m.queue.Mutate(ctx, id, check)
	} else {
		sub, err = m.queue.Take(ctx, id, func(s *submission.Submission) error {
			if err := check(s); err != nil {
				return err
			}
			s.UpdatedAt = m.now().UTC()
			_, err := m.archive.Put(ctx, s)
			return err
		})
	}
	if err != nil {
		return m.settle(ctx, err)
	}

	m.logDecision(ctx, "team_lead_review", sub, reason)
	m.syncShadow(ctx, sub, nil)
	switch sub.Status {
	case submission.StatusPendingAdmin:
		m.notify(ctx, notifications.EventTeamLeadApproved, sub, notifications.Payload{"actor": p.ID})
	case submission.StatusRejectedByTeamLead:
		m.notify(ctx, notifications.EventTeamLeadRejected, sub, notifications.Payload{"actor": p.ID, "reason": reason})
	case submission.StatusChangesRequested:
		m.notify(ctx, notifications.EventChangesRequested, sub, notifications.Payload{"actor": p.ID, "reason": reason})
	}
	return Result{OK: true, SubmissionID: sub.ID, Status: sub.Status}, nil
}

// DecideAdmin records the final review. Every outcome archives the
// submission and drops it from the queue. Approval also places the artifact;
// a placement failure never reverts the approval but opens a manual
// placement ticket. Rejection deletes the working copy; a change request
// leaves it untouched.
func (m *Manager) DecideAdmin(ctx context.Context, p submission.Principal, id string, decision Decision, reason string) (Result, error) {
	ctx = m.opContext(ctx, "decide_admin", p, id)
	if err := m.requireRole(p, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	action, ok := adminAction(decision)
	if !ok {
		return m.settle(ctx, services.Wrap(services.ErrValidation, "workflow", "decide", fmt.Sprintf("unknown decision %q", decision), nil))
	}

	var (
		placed placement.Result
		ticket *accessreq.Request
	)
	sub, err := m.queue.Take(ctx, id, func(s *submission.Submission) error {
		if s.Status != submission.StatusPendingAdmin {
			return outOfStage(s.Status, action)
		}
		if err := m.applyAction(s, action, p.ID, reason); err != nil {
			return err
		}
		now := m.now().UTC()
		s.UpdatedAt = now
		// The decision is archived before any file is touched, so a failed
		// archive write leaves the working copy and the queue entry as they were.
		if _, err := m.archive.Put(ctx, s); err != nil {
			return err
		}
		if action == submission.ActionAdminApprove {
			placed, ticket = m.place(ctx, p, s)
			s.Placement = placed.Info(ticketID(ticket), now)
			s.ArtifactInWorkingArea = placed.Outcome == submission.PlacementTicketed
			m.refreshArchive(ctx, s, "placement outcome not archived")
		}
		return nil
	})
	if err != nil {
		return m.settle(ctx, err)
	}
	discarded := false
	if sub.Status == submission.StatusRejectedByAdmin {
		discarded = m.discard(ctx, sub)
	}

	m.logDecision(ctx, "admin_review", sub, reason)
	m.syncShadow(ctx, sub, func(rec *shadow.Record) {
		if discarded {
			rec.PlacementNote = "working copy deleted"
		}
	})

	result := Result{OK: true, SubmissionID: sub.ID, Status: sub.Status, Placement: sub.Placement}
	switch sub.Status {
	case submission.StatusApproved:
		m.notify(ctx, notifications.EventApproved, sub, notifications.Payload{"actor": p.ID})
		if placed.Outcome == submission.PlacementPlaced {
			m.notify(ctx, notifications.EventPlacementCompleted, sub, notifications.Payload{"final_path": placed.FinalPath})
		} else {
			result.Reason = ReasonManualPlacement
			result.TicketID = ticketID(ticket)
			m.notify(ctx, notifications.EventManualPlacementRequired, sub, notifications.Payload{
				"ticket":      result.TicketID,
				"staged_path": placed.StagedPath,
			})
		}
	case submission.StatusRejectedByAdmin:
		m.notify(ctx, notifications.EventRejectedByAdmin, sub, notifications.Payload{"actor": p.ID, "reason": reason})
	case submission.StatusChangesRequested:
		m.notify(ctx, notifications.EventChangesRequested, sub, notifications.Payload{"actor": p.ID, "reason": reason})
	}
	return result, nil
}

// discard deletes the working copy of an archived rejection and records that
// in the archive entry. A failed delete is logged and the entry keeps the
// copy marked as present.
func (m *Manager) discard(ctx context.Context, sub *submission.Submission) bool {
	if err := m.placer.Discard(ctx, sub); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, m.logger), "working copy not deleted", "discard_failed",
			logging.Error(err),
			logging.String("path", sub.Artifact.WorkingPath),
			logging.String(logging.FieldErrorHint, "delete the rejected file by hand"),
			logging.String(logging.FieldImpact, "rejected artifact stays in the working area"),
		)
		return false
	}
	sub.ArtifactInWorkingArea = false
	m.refreshArchive(ctx, sub, "working copy removal not archived")
	return true
}

// refreshArchive rewrites the archived snapshot after a file side effect.
// The decision itself is already archived, so a failure here is logged.
func (m *Manager) refreshArchive(ctx context.Context, sub *submission.Submission, msg string) {
	if _, err := m.archive.Put(ctx, sub); err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, m.logger), msg, "archive_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check archive.db on the data root"),
			logging.String(logging.FieldImpact, "archive snapshot lags the file state"),
		)
	}
}

// place runs the movement engine for a freshly approved submission and opens
// a ticket when the artifact did not reach the projects tree. A ticket that
// cannot be written is logged; the placement outcome still stands.
func (m *Manager) place(ctx context.Context, p submission.Principal, sub *submission.Submission) (placement.Result, *accessreq.Request) {
	res := m.placer.Place(ctx, sub, sub.Artifact.WorkingPath)
	if res.Outcome == submission.PlacementPlaced {
		return res, nil
	}
	detail := "placement failed"
	if res.Cause != nil {
		detail = res.Cause.Error()
	}
	ticket, _, err := m.access.Create(ctx, accessreq.Request{
		RequestedBy: p.ID,
		Submission:  sub.Clone(),
		Destination: res.Destination,
		StagedPath:  res.StagedPath,
		Error:       detail,
	})
	if err != nil {
		logging.ErrorWithContext(logging.WithContext(ctx, m.logger), "manual placement ticket not written", "access_request_failed",
			logging.Error(err),
			logging.String("destination", res.Destination),
			logging.String("staged_path", res.StagedPath),
			logging.String(logging.FieldErrorHint, "check the data root; place the artifact by hand"),
			logging.String(logging.FieldImpact, "no ticket tracks this approved artifact"),
		)
		return res, nil
	}
	return res, ticket
}

// outOfStage refuses a reviewer acting outside their own review stage.
func outOfStage(status submission.Status, action submission.Action) error {
	te := &submission.TransitionError{From: status, Action: action}
	return services.Wrap(services.ErrValidation, "workflow", string(action), te.Error(), nil)
}

func ticketID(t *accessreq.Request) string {
	if t == nil {
		return ""
	}
	return t.ID
}

func (m *Manager) logDecision(ctx context.Context, decisionType string, sub *submission.Submission, reason string) {
	attrs := logging.DecisionAttrs(decisionType, string(sub.Status), reason)
	attrs = append(attrs, logging.String("artifact", sub.Artifact.Name), logging.Int("history_len", len(sub.History)))
	logging.WithContext(ctx, m.logger).Info("review decision recorded", logging.Args(attrs...)...)
}

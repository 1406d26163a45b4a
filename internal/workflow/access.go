package workflow

import (
	"context"
	"fmt"

	"docket/internal/accessreq"
	"docket/internal/logging"
	"docket/internal/notifications"
	"docket/internal/shadow"
	"docket/internal/submission"
)

// ListAccessRequests returns manual-placement tickets, newest first.
func (m *Manager) ListAccessRequests(ctx context.Context, pendingOnly bool) ([]*accessreq.Request, error) {
	if pendingOnly {
		return m.access.ListPending(ctx)
	}
	return m.access.List(ctx)
}

// CompleteAccessRequest records that an admin placed the artifact by hand.
// Completing a closed ticket succeeds without changes.
func (m *Manager) CompleteAccessRequest(ctx context.Context, p submission.Principal, ticketID string) (Result, error) {
	ctx = m.opContext(ctx, "complete_access_request", p, "")
	if err := m.requireRole(p, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	ticket, err := m.access.Complete(ctx, ticketID, p.ID)
	if err != nil {
		return m.settle(ctx, err)
	}
	if sub := ticket.Submission; sub != nil && ticket.Status == accessreq.StatusManuallyCompleted {
		m.updateNote(ctx, sub, fmt.Sprintf("placed manually by %s", ticket.CompletedBy))
	}
	return Result{OK: true, SubmissionID: ticket.SubmissionID(), TicketID: ticket.ID}, nil
}

// RetryAccessRequest re-runs placement for a ticket's submission snapshot.
// It is safe to repeat: a placement already made is reused, and the archive
// entry is refreshed rather than duplicated.
func (m *Manager) RetryAccessRequest(ctx context.Context, p submission.Principal, ticketID string) (Result, error) {
	ctx = m.opContext(ctx, "retry_access_request", p, "")
	if err := m.requireRole(p, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	ticket, err := m.access.Get(ctx, ticketID)
	if err != nil {
		return m.settle(ctx, err)
	}
	sub := ticket.Submission
	ctx = m.opContext(ctx, "retry_access_request", p, sub.ID)
	if !ticket.Status.IsOpen() {
		return Result{OK: true, Reason: "ticket already closed", SubmissionID: sub.ID, TicketID: ticket.ID}, nil
	}

	var result Result
	err = m.queue.WithLock(ctx, sub.ID, func() error {
		source := sub.Artifact.WorkingPath
		if ticket.StagedPath != "" {
			source = ticket.StagedPath
		}
		res := m.placer.Place(ctx, sub, source)
		now := m.now().UTC()
		if res.Outcome != submission.PlacementPlaced {
			detail := "placement failed"
			if res.Cause != nil {
				detail = res.Cause.Error()
			}
			if _, _, err := m.access.Create(ctx, accessreq.Request{
				RequestedBy: p.ID,
				Submission:  sub,
				Destination: res.Destination,
				StagedPath:  res.StagedPath,
				Error:       detail,
			}); err != nil {
				return err
			}
			result = refused(ReasonManualPlacement)
			result.SubmissionID, result.TicketID = sub.ID, ticket.ID
			return nil
		}

		placed := sub.Clone()
		placed.Placement = res.Info(ticket.ID, now)
		placed.ArtifactInWorkingArea = false
		if _, err := m.archive.Put(ctx, placed); err != nil {
			return err
		}
		if _, err := m.access.MarkAutoCompleted(ctx, ticket.ID, res.FinalPath); err != nil {
			return err
		}
		m.syncShadow(ctx, placed, nil)
		m.notify(ctx, notifications.EventPlacementCompleted, placed, notifications.Payload{"final_path": res.FinalPath})
		result = Result{OK: true, SubmissionID: sub.ID, Status: placed.Status, Placement: placed.Placement, TicketID: ticket.ID}
		return nil
	})
	if err != nil {
		return m.settle(ctx, err)
	}
	logging.WithContext(ctx, m.logger).Info("placement retried",
		logging.String("ticket_id", ticket.ID),
		logging.Bool("placed", result.OK),
	)
	return result, nil
}

func (m *Manager) updateNote(ctx context.Context, sub *submission.Submission, note string) {
	_, err := m.ledger.Update(ctx, sub.SubmitterID, sub.Artifact.Name, func(rec *shadow.Record) error {
		if rec.SubmissionID == sub.ID {
			rec.PlacementNote = note
		}
		return nil
	})
	if err != nil {
		m.logDrift(ctx, sub, err)
	}
}

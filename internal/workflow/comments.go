package workflow

import (
	"context"
	"errors"
	"fmt"

	"docket/internal/comments"
	"docket/internal/services"
	"docket/internal/submission"
)

// AddComment attaches a note to a queued or archived submission. Any party
// may comment regardless of status.
func (m *Manager) AddComment(ctx context.Context, p submission.Principal, id, text string) (Result, error) {
	ctx = m.opContext(ctx, "add_comment", p, id)
	if err := m.requireRole(p, submission.RoleUser, submission.RoleTeamLead, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	if err := m.ensureKnown(ctx, id); err != nil {
		return m.settle(ctx, err)
	}
	if _, err := m.comments.Add(ctx, id, p.ID, text); err != nil {
		return m.settle(ctx, err)
	}
	return Result{OK: true, SubmissionID: id}, nil
}

// ListComments returns a submission's comments, oldest first.
func (m *Manager) ListComments(ctx context.Context, id string) ([]comments.Comment, error) {
	return m.comments.List(ctx, id)
}

func (m *Manager) ensureKnown(ctx context.Context, id string) error {
	_, err := m.queue.Get(ctx, id)
	if err == nil || !errors.Is(err, services.ErrNotFound) {
		return err
	}
	archived, err := m.archive.Contains(ctx, id)
	if err != nil {
		return err
	}
	if !archived {
		return services.Wrap(services.ErrNotFound, "workflow", "comment", fmt.Sprintf("submission %s not found", id), nil)
	}
	return nil
}

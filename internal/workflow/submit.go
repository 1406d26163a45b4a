package workflow

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"docket/internal/archive"
	"docket/internal/logging"
	"docket/internal/notifications"
	"docket/internal/services"
	"docket/internal/shadow"
	"docket/internal/submission"
	"docket/internal/textutil"
)

// Submit enqueues an artifact from the submitter's working area for team
// lead review and returns the new submission id.
func (m *Manager) Submit(ctx context.Context, p submission.Principal, req SubmitRequest) (Result, error) {
	ctx = m.opContext(ctx, "submit", p, "")
	if err := m.requireRole(p, submission.RoleUser, submission.RoleTeamLead, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	team := strings.TrimSpace(req.Team)
	if team == "" {
		team = p.PrimaryTeam()
	}
	if team == "" {
		return m.settle(ctx, services.Wrap(services.ErrValidation, "workflow", "submit", "no team configured", nil))
	}
	artifact, err := inspectArtifact(p.ID, req.Path)
	if err != nil {
		return m.settle(ctx, err)
	}
	if err := m.ensureNotActive(ctx, p.ID, artifact.Name); err != nil {
		return m.settle(ctx, err)
	}

	now := m.now().UTC()
	sub := &submission.Submission{
		ID:                    uuid.NewString(),
		Artifact:              artifact,
		SubmitterID:           p.ID,
		Team:                  team,
		Status:                submission.StatusDraft,
		Description:           strings.TrimSpace(req.Description),
		Tags:                  submission.NormalizeTags(req.Tags),
		CreatedAt:             now,
		ArtifactInWorkingArea: true,
	}
	if err := m.applyAction(sub, submission.ActionSubmit, p.ID, ""); err != nil {
		return m.settle(ctx, err)
	}
	ctx = m.opContext(ctx, "submit", p, sub.ID)
	if err := m.queue.Enqueue(ctx, sub); err != nil {
		return m.settle(ctx, err)
	}
	m.pushSubmitted(ctx, sub)

	logging.WithContext(ctx, m.logger).Info("submission enqueued",
		logging.String("artifact", artifact.Name),
		logging.String("team", team),
		logging.Int64("size", artifact.Size),
	)
	m.notify(ctx, notifications.EventSubmitted, sub, nil)
	return Result{OK: true, SubmissionID: sub.ID, Status: sub.Status}, nil
}

// Resubmit reopens a submission that was rejected by the team lead or sent
// back for changes. The artifact is reused under a new submission id.
func (m *Manager) Resubmit(ctx context.Context, p submission.Principal, req ResubmitRequest) (Result, error) {
	ctx = m.opContext(ctx, "resubmit", p, "")
	if err := m.requireRole(p, submission.RoleUser, submission.RoleTeamLead, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	old, err := m.resolveResubmittable(ctx, p, req.Ref)
	if err != nil {
		return m.settle(ctx, err)
	}
	artifact, err := inspectArtifact(p.ID, old.Artifact.WorkingPath)
	if err != nil {
		return m.settle(ctx, err)
	}
	if err := m.ensureNotActive(ctx, p.ID, artifact.Name); err != nil {
		return m.settle(ctx, err)
	}

	sub := old.Clone()
	sub.ID = uuid.NewString()
	sub.PreviousID = old.ID
	sub.Artifact = artifact
	sub.CreatedAt = m.now().UTC()
	sub.UpdatedAt = sub.CreatedAt
	sub.TeamLeadActor = ""
	sub.AdminActor = ""
	sub.Placement = nil
	sub.ArtifactInWorkingArea = true
	if req.Description != nil {
		sub.Description = strings.TrimSpace(*req.Description)
	}
	if req.Tags != nil {
		sub.Tags = submission.NormalizeTags(req.Tags)
	}
	if err := m.applyAction(sub, submission.ActionResubmit, p.ID, ""); err != nil {
		return m.settle(ctx, err)
	}
	ctx = m.opContext(ctx, "resubmit", p, sub.ID)
	if err := m.queue.Enqueue(ctx, sub); err != nil {
		return m.settle(ctx, err)
	}
	m.pushSubmitted(ctx, sub)

	logging.WithContext(ctx, m.logger).Info("submission resubmitted",
		logging.String("previous_id", old.ID),
		logging.String("artifact", artifact.Name),
	)
	m.notify(ctx, notifications.EventResubmitted, sub, notifications.Payload{"previous_id": old.ID})
	return Result{OK: true, SubmissionID: sub.ID, Status: sub.Status}, nil
}

// Withdraw pulls a pending submission back before any decision. The queue
// entry is dropped and the owner's ledger returns to its pre-submission state.
func (m *Manager) Withdraw(ctx context.Context, p submission.Principal, id string) (Result, error) {
	ctx = m.opContext(ctx, "withdraw", p, id)
	if err := m.requireRole(p, submission.RoleUser, submission.RoleTeamLead, submission.RoleAdmin); err != nil {
		return m.settle(ctx, err)
	}
	taken, err := m.queue.Take(ctx, id, func(sub *submission.Submission) error {
		if sub.SubmitterID != p.ID {
			return services.Wrap(services.ErrValidation, "workflow", "withdraw", ReasonNotSubmitter, nil)
		}
		return m.applyAction(sub, submission.ActionWithdraw, p.ID, "")
	})
	if err != nil {
		return m.settle(ctx, err)
	}

	last, _ := taken.LastEntry()
	_, err = m.ledger.Update(ctx, taken.SubmitterID, taken.Artifact.Name, func(rec *shadow.Record) error {
		restored := &shadow.Record{Status: submission.StatusDraft, CreatedAt: rec.CreatedAt}
		if rec.Previous != nil {
			restored = rec.Previous.Clone()
		}
		restored.History = append(restored.History, last)
		restored.ArtifactPresent = true
		restored.WorkingPath = taken.Artifact.WorkingPath
		restored.Previous = nil
		*rec = *restored
		return nil
	})
	if err != nil {
		m.logDrift(ctx, taken, err)
	}

	logging.WithContext(ctx, m.logger).Info("submission withdrawn", logging.String("artifact", taken.Artifact.Name))
	m.notify(ctx, notifications.EventWithdrawn, taken, nil)
	return Result{OK: true, SubmissionID: taken.ID, Status: taken.Status}, nil
}

// pushSubmitted mirrors a new submission into the ledger and keeps the
// record's earlier state so a withdrawal can restore it.
func (m *Manager) pushSubmitted(ctx context.Context, sub *submission.Submission) {
	_, err := m.ledger.Update(ctx, sub.SubmitterID, sub.Artifact.Name, func(rec *shadow.Record) error {
		previous := rec.Snapshot()
		rec.Mirror(sub)
		rec.PlacementNote = ""
		rec.Previous = previous
		return nil
	})
	if err != nil {
		m.logDrift(ctx, sub, err)
	}
}

func inspectArtifact(owner, path string) (submission.Artifact, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return submission.Artifact{}, services.Wrap(services.ErrValidation, "workflow", "inspect", "artifact path is required", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return submission.Artifact{}, services.Wrap(services.ErrValidation, "workflow", "inspect", "artifact path is invalid", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return submission.Artifact{}, services.Wrap(services.ErrValidation, "workflow", "inspect", "artifact not found in working area", nil)
		}
		return submission.Artifact{}, services.Wrap(services.ErrStorageUnavailable, "workflow", "inspect", "stat artifact", err)
	}
	if !info.Mode().IsRegular() {
		return submission.Artifact{}, services.Wrap(services.ErrValidation, "workflow", "inspect", "artifact is not a regular file", nil)
	}
	name := textutil.SanitizeFileName(filepath.Base(abs))
	if name == "" {
		return submission.Artifact{}, services.Wrap(services.ErrValidation, "workflow", "inspect", "artifact name is unusable", nil)
	}
	return submission.Artifact{OwnerID: owner, Name: name, Size: info.Size(), WorkingPath: abs}, nil
}

// ensureNotActive refuses a second live submission of the same artifact.
func (m *Manager) ensureNotActive(ctx context.Context, owner, name string) error {
	queued, err := m.queue.ListBySubmitter(ctx, owner)
	if queued == nil && err != nil {
		return err
	}
	for _, sub := range queued {
		if sub.Artifact.Name == name {
			return services.Wrap(services.ErrValidation, "workflow", "submit", ReasonAlreadyActive, nil)
		}
	}
	return nil
}

func (m *Manager) resolveResubmittable(ctx context.Context, p submission.Principal, ref string) (*submission.Submission, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", "submission id or artifact name is required", nil)
	}
	id := ref
	if _, err := uuid.Parse(ref); err != nil {
		rec, err := m.ledger.Get(ctx, p.ID, ref)
		if err != nil {
			return nil, err
		}
		if rec.SubmissionID == "" {
			return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", fmt.Sprintf("%s has never been submitted", ref), nil)
		}
		id = rec.SubmissionID
	}
	entry, err := m.archive.Get(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			if _, qerr := m.queue.Get(ctx, id); qerr == nil {
				return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", "submission is still under review", nil)
			}
		}
		return nil, err
	}
	old := entry.Submission
	if old.SubmitterID != p.ID {
		return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", ReasonNotSubmitter, nil)
	}
	if !old.Status.IsResubmittable() {
		return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", fmt.Sprintf("a submission that is %s cannot be resubmitted", old.Status.Label()), nil)
	}
	if entry.Bucket != archive.BucketRejected {
		return nil, services.Wrap(services.ErrIntegrity, "workflow", "resubmit", "archived in the wrong bucket", nil)
	}
	archived, err := m.archive.ListByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range archived {
		if e.Submission.PreviousID == old.ID {
			return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", "already resubmitted", nil)
		}
	}
	queued, err := m.queue.ListBySubmitter(ctx, p.ID)
	if queued == nil && err != nil {
		return nil, err
	}
	for _, sub := range queued {
		if sub.PreviousID == old.ID {
			return nil, services.Wrap(services.ErrValidation, "workflow", "resubmit", "already resubmitted", nil)
		}
	}
	return old, nil
}

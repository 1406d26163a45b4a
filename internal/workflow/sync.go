package workflow

import (
	"context"
	"errors"

	"docket/internal/logging"
	"docket/internal/notifications"
	"docket/internal/shadow"
	"docket/internal/submission"
)

// syncShadow mirrors sub into its submitter's ledger. Failure never fails
// the operation: the drift is logged and repaired by the next owner listing.
func (m *Manager) syncShadow(ctx context.Context, sub *submission.Submission, extra func(*shadow.Record)) {
	_, err := m.ledger.Update(ctx, sub.SubmitterID, sub.Artifact.Name, func(rec *shadow.Record) error {
		rec.Mirror(sub)
		if extra != nil {
			extra(rec)
		}
		return nil
	})
	if err != nil {
		m.logDrift(ctx, sub, err)
	}
}

func (m *Manager) logDrift(ctx context.Context, sub *submission.Submission, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, m.logger), "shadow ledger not updated", "shadow_drift",
		logging.String(logging.FieldSubmissionID, sub.ID),
		logging.String("owner", sub.SubmitterID),
		logging.String("status", string(sub.Status)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the owner's next listing repairs the record"),
		logging.String(logging.FieldImpact, "the submitter may briefly see a stale status"),
	)
}

// notify hands delivery to the background pool.
func (m *Manager) notify(ctx context.Context, event notifications.Event, sub *submission.Submission, extra notifications.Payload) {
	payload := notifications.Payload{
		"id":        sub.ID,
		"artifact":  sub.Artifact.Name,
		"submitter": sub.SubmitterID,
		"team":      sub.Team,
	}
	for k, v := range extra {
		payload[k] = v
	}
	logger := logging.WithContext(ctx, m.logger)
	m.pool.Go("notify:"+string(event), func(taskCtx context.Context) error {
		err := m.notifier.Publish(taskCtx, event, payload)
		if errors.Is(err, context.Canceled) {
			logger.Debug("shutting down, notification not sent", logging.String("event", string(event)))
			return nil
		}
		return err
	})
}

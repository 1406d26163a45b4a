package workflow

import (
	"context"
	"errors"
	"time"

	"docket/internal/archive"
	"docket/internal/logging"
	"docket/internal/queue"
	"docket/internal/services"
	"docket/internal/staging"
)

// ReconcileReport summarizes a repair pass.
type ReconcileReport struct {
	RemovedFromQueue []string `json:"removed_from_queue"`
	LocksPruned      int      `json:"locks_pruned"`
	StagedRemoved    []string `json:"staged_removed"`
	Unreadable       int      `json:"unreadable"`
}

// Health is the combined state of the shared stores.
type Health struct {
	Queue          queue.Health  `json:"queue"`
	Archive        archive.Stats `json:"archive"`
	PendingTickets int           `json:"pending_tickets"`
	StagedCopies   int           `json:"staged_copies"`
}

// stagingGrace protects staged copies an approval may still be writing.
const stagingGrace = time.Hour

// Reconcile removes queue documents whose submission is already archived,
// which a crash between archiving and dequeuing can leave behind. It also
// prunes lock markers of submissions that are gone and staged copies no open
// ticket refers to.
func (m *Manager) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	logger := logging.WithContext(services.WithOperation(ctx, "reconcile"), m.logger)

	items, listErr := m.queue.List(ctx)
	if items == nil && listErr != nil {
		return report, listErr
	}
	if listErr != nil {
		report.Unreadable = len(unwrapJoined(listErr))
	}
	for _, sub := range items {
		archived, err := m.archive.Contains(ctx, sub.ID)
		if err != nil {
			return report, err
		}
		if !archived {
			continue
		}
		logging.WarnWithContext(logger, "submission found in both queue and archive", "queue_archive_duplicate",
			logging.String(logging.FieldSubmissionID, sub.ID),
			logging.String(logging.FieldErrorHint, "the archived copy is authoritative"),
			logging.String(logging.FieldImpact, "stale queue entry removed"),
		)
		if err := m.queue.Remove(ctx, sub.ID); err != nil {
			return report, err
		}
		report.RemovedFromQueue = append(report.RemovedFromQueue, sub.ID)
	}
	pruned, err := m.queue.PruneLocks(ctx)
	if err != nil {
		return report, err
	}
	report.LocksPruned = pruned

	open, err := m.access.ListPending(ctx)
	if err != nil {
		return report, err
	}
	keep := make(map[string]struct{}, len(open))
	for _, ticket := range open {
		keep[ticket.SubmissionID()] = struct{}{}
	}
	swept := staging.Sweep(ctx, m.cfg.Paths.StagingDir, keep, stagingGrace, logger)
	report.StagedRemoved = swept.Removed

	logger.Info("reconcile finished",
		logging.Int("removed", len(report.RemovedFromQueue)),
		logging.Int("locks_pruned", pruned),
		logging.Int("staged_removed", len(swept.Removed)),
		logging.Int("unreadable", report.Unreadable),
	)
	return report, nil
}

// Health reports queue, archive, and ticket counts.
func (m *Manager) Health(ctx context.Context) (Health, error) {
	var h Health
	qh, err := m.queue.Health(ctx)
	if err != nil {
		return h, err
	}
	h.Queue = qh
	if h.Archive, err = m.archive.Stats(ctx); err != nil {
		return h, err
	}
	pending, err := m.access.ListPending(ctx)
	if err != nil {
		return h, err
	}
	h.PendingTickets = len(pending)
	if staged, err := staging.List(m.cfg.Paths.StagingDir); err == nil {
		h.StagedCopies = len(staged)
	}
	return h, nil
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	if errors.Is(err, services.ErrIntegrity) {
		return []error{err}
	}
	return nil
}

// ArchiveEntries lists one archive bucket, newest first. A limit of zero
// or less returns the whole bucket.
func (m *Manager) ArchiveEntries(ctx context.Context, bucket archive.Bucket, limit int) ([]*archive.Entry, error) {
	return m.archive.List(ctx, bucket, limit)
}

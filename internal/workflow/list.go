package workflow

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"docket/internal/archive"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/shadow"
	"docket/internal/submission"
	"docket/internal/textutil"
)

// ListForActor returns the submissions visible to p. Submitters see their
// own work (drafts included, stale shadow records repaired on the way),
// team leads see their team, and admins see everything.
func (m *Manager) ListForActor(ctx context.Context, p submission.Principal, opts ListOptions) ([]Entry, error) {
	ctx = m.opContext(ctx, "list", p, "")
	if err := p.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, "workflow", "list", err.Error(), nil)
	}

	var (
		entries []Entry
		err     error
	)
	switch p.Role {
	case submission.RoleUser:
		entries, err = m.listOwned(ctx, p.ID)
	case submission.RoleTeamLead:
		team := p.PrimaryTeam()
		if opts.Team != "" && !textutil.EqualFold(opts.Team, team) {
			return nil, services.Wrap(services.ErrValidation, "workflow", "list", ReasonTeamMismatch, nil)
		}
		entries, err = m.listTeam(ctx, team)
	case submission.RoleAdmin:
		if opts.Team != "" {
			entries, err = m.listTeam(ctx, opts.Team)
		} else {
			entries, err = m.listAll(ctx)
		}
	default:
		return nil, services.Wrap(services.ErrValidation, "workflow", "list", ReasonRoleNotPermitted, nil)
	}
	if err != nil {
		return nil, err
	}

	entries = filterEntries(entries, opts)
	sortEntries(entries, opts.Sort)
	m.attachCommentCounts(ctx, entries)
	return entries, nil
}

func (m *Manager) listOwned(ctx context.Context, owner string) ([]Entry, error) {
	queued, err := m.queue.ListBySubmitter(ctx, owner)
	if err != nil && queued == nil {
		return nil, err
	}
	m.reportUnreadable(ctx, err)
	archived, err := m.archive.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	entries := m.merge(ctx, queued, archived)

	records, err := m.ledger.List(ctx, owner)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, m.logger), "shadow ledger unreadable", "shadow_drift",
			logging.String("owner", owner),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "drafts are hidden until the ledger is repaired"),
			logging.String(logging.FieldImpact, "listing shows authoritative records only"),
		)
		return entries, nil
	}
	byName := make(map[string]*shadow.Record, len(records))
	for _, rec := range records {
		byName[rec.ArtifactName] = rec
	}

	// Newest first, so a missing record is rebuilt from the latest submission.
	sortEntries(entries, SortNewest)
	known := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		sub := entry.Submission
		known[sub.ID] = struct{}{}
		rec, ok := byName[sub.Artifact.Name]
		switch {
		case !ok:
			m.repair(ctx, sub)
			byName[sub.Artifact.Name] = &shadow.Record{SubmissionID: sub.ID}
		case rec.SubmissionID == sub.ID && !rec.InSync(sub):
			m.repair(ctx, sub)
		}
	}

	for _, rec := range records {
		if _, ok := known[rec.SubmissionID]; ok && rec.SubmissionID != "" {
			continue
		}
		entry := Entry{Submission: draftFromRecord(owner, rec), Source: SourceLedger}
		if rec.SubmissionID != "" && rec.Status != submission.StatusDraft {
			entry.Note = "not found in queue or archive"
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (m *Manager) repair(ctx context.Context, sub *submission.Submission) {
	logging.WithContext(ctx, m.logger).Info("repairing shadow record",
		logging.String(logging.FieldSubmissionID, sub.ID),
		logging.String("owner", sub.SubmitterID),
		logging.String("status", string(sub.Status)),
	)
	m.syncShadow(ctx, sub, nil)
}

func (m *Manager) listTeam(ctx context.Context, team string) ([]Entry, error) {
	queued, err := m.queue.ListByTeam(ctx, team)
	if err != nil && queued == nil {
		return nil, err
	}
	m.reportUnreadable(ctx, err)
	archived, err := m.archive.ListByTeam(ctx, team)
	if err != nil {
		return nil, err
	}
	return m.merge(ctx, queued, archived), nil
}

func (m *Manager) listAll(ctx context.Context) ([]Entry, error) {
	queued, err := m.queue.List(ctx)
	if err != nil && queued == nil {
		return nil, err
	}
	m.reportUnreadable(ctx, err)
	archived, err := m.archive.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return m.merge(ctx, queued, archived), nil
}

// merge unions queue and archive rows. An id present in both is an
// integrity fault left by an interrupted decision; the archive copy wins.
func (m *Manager) merge(ctx context.Context, queued []*submission.Submission, archived []*archive.Entry) []Entry {
	entries := make([]Entry, 0, len(queued)+len(archived))
	seen := make(map[string]struct{}, len(archived))
	for _, entry := range archived {
		seen[entry.Submission.ID] = struct{}{}
		entries = append(entries, Entry{Submission: entry.Submission, Source: SourceArchive, Bucket: entry.Bucket})
	}
	for _, sub := range queued {
		if _, dup := seen[sub.ID]; dup {
			logging.WarnWithContext(logging.WithContext(ctx, m.logger), "submission found in both queue and archive", "queue_archive_duplicate",
				logging.String(logging.FieldSubmissionID, sub.ID),
				logging.String(logging.FieldErrorHint, "run queue repair to drop the stale queue entry"),
				logging.String(logging.FieldImpact, "archived copy shown"),
			)
			continue
		}
		entries = append(entries, Entry{Submission: sub, Source: SourceQueue})
	}
	return entries
}

func (m *Manager) reportUnreadable(ctx context.Context, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, m.logger), "unreadable queue documents skipped", "queue_unreadable",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "inspect the queue directory or run queue health"),
		logging.String(logging.FieldImpact, "affected submissions are missing from the listing"),
	)
}

func (m *Manager) attachCommentCounts(ctx context.Context, entries []Entry) {
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Source != SourceLedger {
			ids = append(ids, entry.Submission.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	counts, err := m.comments.Count(ctx, ids)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logging.WithContext(ctx, m.logger).Debug("comment counts unavailable", logging.Error(err))
		}
		return
	}
	for i := range entries {
		entries[i].Comments = counts[entries[i].Submission.ID]
	}
}

// draftFromRecord turns a ledger-only row into a listing row.
func draftFromRecord(owner string, rec *shadow.Record) *submission.Submission {
	return &submission.Submission{
		ID:                    rec.SubmissionID,
		Artifact:              submission.Artifact{OwnerID: owner, Name: rec.ArtifactName, WorkingPath: rec.WorkingPath},
		SubmitterID:           owner,
		Team:                  rec.Team,
		Status:                rec.Status,
		Description:           rec.Description,
		Tags:                  append([]string(nil), rec.Tags...),
		CreatedAt:             rec.CreatedAt,
		UpdatedAt:             rec.UpdatedAt,
		History:               append([]submission.HistoryEntry(nil), rec.History...),
		ArtifactInWorkingArea: rec.ArtifactPresent,
	}
}

func filterEntries(entries []Entry, opts ListOptions) []Entry {
	if len(opts.Statuses) == 0 && opts.Search == "" {
		return entries
	}
	out := entries[:0]
	for _, entry := range entries {
		sub := entry.Submission
		if len(opts.Statuses) > 0 && !slices.Contains(opts.Statuses, sub.Status) {
			continue
		}
		if opts.Search != "" {
			fields := append([]string{sub.Artifact.Name, sub.Description, sub.SubmitterID, sub.Team}, sub.Tags...)
			if !textutil.ContainsFold(opts.Search, fields...) {
				continue
			}
		}
		out = append(out, entry)
	}
	return out
}

func sortEntries(entries []Entry, order SortOrder) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		x, y := a.Submission, b.Submission
		switch order {
		case SortOldest:
			return x.UpdatedAt.Compare(y.UpdatedAt)
		case SortName:
			if c := cmp.Compare(textutil.Fold(x.Artifact.Name), textutil.Fold(y.Artifact.Name)); c != 0 {
				return c
			}
		case SortStatus:
			if c := cmp.Compare(statusRank(x.Status), statusRank(y.Status)); c != 0 {
				return c
			}
		}
		return y.UpdatedAt.Compare(x.UpdatedAt)
	})
}

func statusRank(status submission.Status) int {
	return slices.Index(submission.AllStatuses(), status)
}

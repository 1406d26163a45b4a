package archive

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docket/internal/config"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/sqlitedb"
	"docket/internal/submission"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// timeLayout is fixed width so archived_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Bucket partitions archived submissions by outcome.
type Bucket string

const (
	BucketApproved Bucket = "approved"
	BucketRejected Bucket = "rejected"
)

// ParseBucket accepts a bucket name from user input.
func ParseBucket(value string) (Bucket, bool) {
	switch Bucket(strings.ToLower(strings.TrimSpace(value))) {
	case BucketApproved:
		return BucketApproved, true
	case BucketRejected:
		return BucketRejected, true
	}
	return "", false
}

// BucketFor returns the bucket a terminal status is archived into.
func BucketFor(status submission.Status) (Bucket, bool) {
	switch status {
	case submission.StatusApproved:
		return BucketApproved, true
	case submission.StatusRejectedByTeamLead, submission.StatusRejectedByAdmin, submission.StatusChangesRequested:
		return BucketRejected, true
	}
	return "", false
}

// Entry is one archived submission snapshot.
type Entry struct {
	Bucket     Bucket                 `json:"bucket"`
	ArchivedAt time.Time              `json:"archived_at"`
	Submission *submission.Submission `json:"submission"`
}

// Stats summarizes the archive contents per bucket.
type Stats struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Cap      int `json:"cap"`
}

// Store persists terminal submissions in SQLite with bounded retention.
type Store struct {
	db         *sqlitedb.DB
	maxEntries int
	logger     *slog.Logger
	now        func() time.Time
}

// Open connects to the archive database under the data root.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := sqlitedb.Open(ctx, cfg.ArchivePath(), schemaSQL, schemaVersion)
	if err != nil {
		if errors.Is(err, sqlitedb.ErrSchemaMismatch) {
			return nil, services.Wrap(services.ErrIntegrity, "archive", "open", "archive schema is out of date", err)
		}
		return nil, services.Wrap(services.ErrStorageUnavailable, "archive", "open", "open archive database", err)
	}
	return &Store{
		db:         db,
		maxEntries: cfg.Archive.MaxEntries,
		logger:     logging.NewComponentLogger(logger, "archive"),
		now:        time.Now,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Put archives sub into its outcome bucket. Archiving the same submission
// twice refreshes the snapshot rather than adding a row. The bucket is then
// trimmed to the retention cap, oldest first.
func (s *Store) Put(ctx context.Context, sub *submission.Submission) (*Entry, error) {
	if sub == nil {
		return nil, services.Wrap(services.ErrValidation, "archive", "put", "submission is required", nil)
	}
	bucket, ok := BucketFor(sub.Status)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "archive", "put", fmt.Sprintf("status %s is not archivable", sub.Status), nil)
	}
	blob, err := encodeSnapshot(sub)
	if err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "archive", "put", "encode snapshot", err)
	}
	archivedAt := s.now().UTC()

	var evicted int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entries (bucket, submission_id, owner_id, team, artifact_name, status, archived_at, snapshot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(bucket, submission_id) DO UPDATE SET
				status = excluded.status,
				snapshot = excluded.snapshot`,
			string(bucket), sub.ID, sub.SubmitterID, sub.Team, sub.Artifact.Name, string(sub.Status),
			archivedAt.Format(timeLayout), blob,
		); err != nil {
			return err
		}
		if s.maxEntries <= 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx, `
			DELETE FROM entries
			WHERE bucket = ? AND id NOT IN (
				SELECT id FROM entries WHERE bucket = ?
				ORDER BY archived_at DESC, id DESC LIMIT ?
			)`, string(bucket), string(bucket), s.maxEntries)
		if err != nil {
			return err
		}
		evicted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return nil, s.wrapDB("put", err)
	}
	if evicted > 0 {
		s.logger.Info("archive trimmed",
			logging.String("bucket", string(bucket)),
			logging.Int64("evicted", evicted),
			logging.Int("cap", s.maxEntries),
		)
	}
	return s.Get(ctx, sub.ID)
}

// Get returns the most recent archive entry for a submission id.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	entries, err := s.query(ctx, "get", `
		SELECT bucket, archived_at, snapshot FROM entries
		WHERE submission_id = ? ORDER BY archived_at DESC, id DESC LIMIT 1`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrNotFound, "archive", "get", fmt.Sprintf("submission %s is not archived", id), nil)
	}
	return entries[0], nil
}

// Contains reports whether id has been archived in any bucket.
func (s *Store) Contains(ctx context.Context, id string) (bool, error) {
	var count int
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM entries WHERE submission_id = ?", id).Scan(&count)
	})
	if err != nil {
		return false, s.wrapDB("contains", err)
	}
	return count > 0, nil
}

// List returns up to limit entries of one bucket, newest first. A limit of
// zero or less returns the whole bucket.
func (s *Store) List(ctx context.Context, bucket Bucket, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	return s.query(ctx, "list", `
		SELECT bucket, archived_at, snapshot FROM entries
		WHERE bucket = ? ORDER BY archived_at DESC, id DESC LIMIT ?`, string(bucket), limit)
}

// ListAll returns every archived submission across both buckets, newest first.
func (s *Store) ListAll(ctx context.Context) ([]*Entry, error) {
	return s.query(ctx, "list_all", `
		SELECT bucket, archived_at, snapshot FROM entries
		ORDER BY archived_at DESC, id DESC`)
}

// ListByOwner returns every archived submission of one submitter, newest first.
func (s *Store) ListByOwner(ctx context.Context, owner string) ([]*Entry, error) {
	return s.query(ctx, "list_by_owner", `
		SELECT bucket, archived_at, snapshot FROM entries
		WHERE owner_id = ? ORDER BY archived_at DESC, id DESC`, owner)
}

// ListByTeam returns every archived submission of one team, newest first.
func (s *Store) ListByTeam(ctx context.Context, team string) ([]*Entry, error) {
	return s.query(ctx, "list_by_team", `
		SELECT bucket, archived_at, snapshot FROM entries
		WHERE team = ? ORDER BY archived_at DESC, id DESC`, team)
}

// Stats counts entries per bucket.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{Cap: s.maxEntries}
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, "SELECT bucket, COUNT(1) FROM entries GROUP BY bucket")
		if err != nil {
			return err
		}
		defer rows.Close()
		stats.Approved, stats.Rejected = 0, 0
		for rows.Next() {
			var bucket string
			var count int
			if err := rows.Scan(&bucket, &count); err != nil {
				return err
			}
			switch Bucket(bucket) {
			case BucketApproved:
				stats.Approved = count
			case BucketRejected:
				stats.Rejected = count
			}
		}
		return rows.Err()
	})
	if err != nil {
		return Stats{}, s.wrapDB("stats", err)
	}
	return stats, nil
}

func (s *Store) query(ctx context.Context, operation, query string, args ...any) ([]*Entry, error) {
	var entries []*Entry
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		entries = entries[:0]
		for rows.Next() {
			var (
				bucket     string
				archivedAt string
				blob       []byte
			)
			if err := rows.Scan(&bucket, &archivedAt, &blob); err != nil {
				return err
			}
			entry, err := s.decodeEntry(bucket, archivedAt, blob)
			if err != nil {
				logging.WarnWithContext(s.logger, "skipping unreadable archive entry", "archive_entry_unreadable",
					logging.String("bucket", bucket),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "the snapshot blob is corrupt"),
					logging.String(logging.FieldImpact, "entry is omitted from listings"),
				)
				continue
			}
			entries = append(entries, entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, s.wrapDB(operation, err)
	}
	return entries, nil
}

func (s *Store) decodeEntry(bucket, archivedAt string, blob []byte) (*Entry, error) {
	sub, err := decodeSnapshot(blob)
	if err != nil {
		return nil, err
	}
	at, err := time.Parse(timeLayout, archivedAt)
	if err != nil {
		return nil, fmt.Errorf("parse archived_at: %w", err)
	}
	return &Entry{Bucket: Bucket(bucket), ArchivedAt: at, Submission: sub}, nil
}

func (s *Store) wrapDB(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if sqlitedb.IsBusy(err) {
		return services.Wrap(services.ErrBusy, "archive", operation, "archive database busy", err)
	}
	return services.Wrap(services.ErrStorageUnavailable, "archive", operation, "archive database", err)
}

package comments

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"docket/internal/config"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/sqlitedb"
)

//go:embed schema.sql
var schemaSQL string

const (
	schemaVersion = 1
	// MaxLength bounds a single comment body in runes.
	MaxLength = 4000
)

// Comment is a free-text annotation on a submission.
type Comment struct {
	ID           int64     `json:"id"`
	SubmissionID string    `json:"submission_id"`
	Actor        string    `json:"actor"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists comments in SQLite on the shared data root.
type Store struct {
	db     *sqlitedb.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open connects to the comments database.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	db, err := sqlitedb.Open(ctx, cfg.CommentsPath(), schemaSQL, schemaVersion)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "comments", "open", "open comments database", err)
	}
	return &Store{db: db, logger: logging.NewComponentLogger(logger, "comments"), now: time.Now}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

// Add records a comment. Callers check that the submission exists.
func (s *Store) Add(ctx context.Context, submissionID, actor, body string) (*Comment, error) {
	body = strings.TrimSpace(body)
	switch {
	case strings.TrimSpace(submissionID) == "":
		return nil, services.Wrap(services.ErrValidation, "comments", "add", "submission id is required", nil)
	case strings.TrimSpace(actor) == "":
		return nil, services.Wrap(services.ErrValidation, "comments", "add", "actor is required", nil)
	case body == "":
		return nil, services.Wrap(services.ErrValidation, "comments", "add", "comment is empty", nil)
	case utf8.RuneCountInString(body) > MaxLength:
		return nil, services.Wrap(services.ErrValidation, "comments", "add", fmt.Sprintf("comment exceeds %d characters", MaxLength), nil)
	}

	comment := &Comment{SubmissionID: submissionID, Actor: actor, Body: body, CreatedAt: s.now().UTC()}
	res, err := s.db.Exec(ctx,
		"INSERT INTO comments (submission_id, actor, body, created_at) VALUES (?, ?, ?, ?)",
		submissionID, actor, body, comment.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, wrapDB("add", err)
	}
	comment.ID, _ = res.LastInsertId()
	s.logger.Debug("comment added",
		logging.String(logging.FieldSubmissionID, submissionID),
		logging.String(logging.FieldActor, actor),
	)
	return comment, nil
}

// List returns a submission's comments in the order they were written.
func (s *Store) List(ctx context.Context, submissionID string) ([]Comment, error) {
	var out []Comment
	err := sqlitedb.RetryOnBusy(ctx, func() error {
		out = out[:0]
		rows, err := s.db.QueryContext(ctx,
			"SELECT id, submission_id, actor, body, created_at FROM comments WHERE submission_id = ? ORDER BY id",
			submissionID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				c       Comment
				created string
			)
			if err := rows.Scan(&c.ID, &c.SubmissionID, &c.Actor, &c.Body, &created); err != nil {
				return err
			}
			c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapDB("list", err)
	}
	return out, nil
}

// Count returns comment totals for the given submissions.
func (s *Store) Count(ctx context.Context, ids []string) (map[string]int, error) {
	counts := make(map[string]int, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			"SELECT submission_id, COUNT(1) FROM comments WHERE submission_id IN ("+placeholders+") GROUP BY submission_id",
			args...,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id string
			var n int
			if err := rows.Scan(&id, &n); err != nil {
				return err
			}
			counts[id] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, wrapDB("count", err)
	}
	return counts, nil
}

func wrapDB(operation string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if sqlitedb.IsBusy(err) {
		return services.Wrap(services.ErrBusy, "comments", operation, "comments database busy", err)
	}
	return services.Wrap(services.ErrStorageUnavailable, "comments", operation, "comments database", err)
}

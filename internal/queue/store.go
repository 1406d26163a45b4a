package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"docket/internal/config"
	"docket/internal/coord"
	"docket/internal/fileutil"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/submission"
)

const (
	documentVersion = 1
	documentSuffix  = ".json"
)

// ErrSchemaMismatch indicates a queue document written by an incompatible version.
var ErrSchemaMismatch = errors.New("queue document version mismatch")

// document is the on-disk envelope for one submission.
type document struct {
	Version    int                    `json:"version"`
	Submission *submission.Submission `json:"submission"`
}

// Store is the global submission queue: one JSON document per active
// submission on the shared data root. Every write happens under the
// coordinator lock for that id and is published by atomic rename, so
// readers never need a lock and never see a half-written record.
type Store struct {
	dir    string
	coord  *coord.Coordinator
	logger *slog.Logger
	now    func() time.Time
}

// Open prepares the queue directories and returns a store bound to cfg.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "queue", "open", "data root unavailable", err)
	}
	backoff := time.Duration(cfg.Coordinator.LockBackoffMS) * time.Millisecond
	return &Store{
		dir:    cfg.QueueDir(),
		coord:  coord.New(cfg.LockDir(), cfg.Coordinator.LockAttempts, backoff, logger),
		logger: logging.NewComponentLogger(logger, "queue"),
		now:    time.Now,
	}, nil
}

// Dir returns the directory holding queue documents.
func (s *Store) Dir() string { return s.dir }

func (s *Store) docPath(id string) string {
	return filepath.Join(s.dir, id+documentSuffix)
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return services.Wrap(services.ErrValidation, "queue", "resolve id", fmt.Sprintf("malformed submission id %q", id), nil)
	}
	return nil
}

// Enqueue publishes a new submission. It refuses an id that is already queued.
func (s *Store) Enqueue(ctx context.Context, sub *submission.Submission) error {
	if err := sub.Validate(); err != nil {
		return services.Wrap(services.ErrValidation, "queue", "enqueue", err.Error(), nil)
	}
	if err := validateID(sub.ID); err != nil {
		return err
	}
	return s.coord.WithLock(ctx, sub.ID, func() error {
		exists, err := fileutil.Exists(s.docPath(sub.ID))
		if err != nil {
			return services.Wrap(services.ErrStorageUnavailable, "queue", "enqueue", "stat document", err)
		}
		if exists {
			return services.Wrap(services.ErrValidation, "queue", "enqueue", "submission already queued", nil)
		}
		record := sub.Clone()
		if record.UpdatedAt.IsZero() {
			record.UpdatedAt = s.now().UTC()
		}
		return s.write(record)
	})
}

// Get reads one submission without taking the lock.
func (s *Store) Get(ctx context.Context, id string) (*submission.Submission, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.read(id)
}

// Mutate applies fn to the current record under the per-id lock and persists
// the result. fn receives a private copy; returning an error leaves the
// stored record untouched.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*submission.Submission) error) (*submission.Submission, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var updated *submission.Submission
	err := s.coord.WithLock(ctx, id, func() error {
		current, err := s.read(id)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if next.ID != id {
			return services.Wrap(services.ErrIntegrity, "queue", "mutate", "mutation changed submission id", nil)
		}
		if err := next.Validate(); err != nil {
			return services.Wrap(services.ErrValidation, "queue", "mutate", err.Error(), nil)
		}
		next.UpdatedAt = s.now().UTC()
		if err := s.write(next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Take applies fn to a copy of the current record under the per-id lock and,
// when fn succeeds, deletes the document. Terminal decisions use it to hand
// the record to the archive before it leaves the queue.
func (s *Store) Take(ctx context.Context, id string, fn func(*submission.Submission) error) (*submission.Submission, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	var taken *submission.Submission
	err := s.coord.WithLock(ctx, id, func() error {
		current, err := s.read(id)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := os.Remove(s.docPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrStorageUnavailable, "queue", "take", "remove document", err)
		}
		taken = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// WithLock runs fn while holding the per-id lock without touching the
// document. Side effects on archived submissions use it to stay serialized
// with decisions on the same id.
func (s *Store) WithLock(ctx context.Context, id string, fn func() error) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.coord.WithLock(ctx, id, fn)
}

// Remove deletes a submission. Removing an absent id is not an error.
func (s *Store) Remove(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	return s.coord.WithLock(ctx, id, func() error {
		if err := os.Remove(s.docPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrStorageUnavailable, "queue", "remove", "remove document", err)
		}
		return nil
	})
}

// List reads every queued submission, newest first. Unreadable documents are
// skipped and reported through the returned error (joined ErrIntegrity
// values) alongside the readable records.
func (s *Store) List(ctx context.Context) ([]*submission.Submission, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "queue", "list", "read queue directory", err)
	}
	items := make([]*submission.Submission, 0, len(entries))
	var problems []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, documentSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		id := strings.TrimSuffix(name, documentSuffix)
		sub, err := s.read(id)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				continue
			}
			problems = append(problems, err)
			continue
		}
		items = append(items, sub)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(problems) > 0 {
		logging.WarnWithContext(s.logger, "unreadable queue documents skipped", "queue_integrity",
			logging.Int("count", len(problems)),
			logging.String(logging.FieldErrorHint, "run 'docket queue health' to list the affected files"),
			logging.String(logging.FieldImpact, "affected submissions are hidden from listings"),
		)
	}
	return items, errors.Join(problems...)
}

// ListByTeam returns queued submissions for one team.
func (s *Store) ListByTeam(ctx context.Context, team string) ([]*submission.Submission, error) {
	return s.filter(ctx, func(sub *submission.Submission) bool { return sub.Team == team })
}

// ListBySubmitter returns queued submissions owned by one actor.
func (s *Store) ListBySubmitter(ctx context.Context, owner string) ([]*submission.Submission, error) {
	return s.filter(ctx, func(sub *submission.Submission) bool { return sub.SubmitterID == owner })
}

func (s *Store) filter(ctx context.Context, keep func(*submission.Submission) bool) ([]*submission.Submission, error) {
	all, err := s.List(ctx)
	if all == nil {
		return nil, err
	}
	out := all[:0]
	for _, sub := range all {
		if keep(sub) {
			out = append(out, sub)
		}
	}
	return out, err
}

func (s *Store) read(id string) (*submission.Submission, error) {
	data, err := os.ReadFile(s.docPath(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "queue", "read", fmt.Sprintf("submission %s not queued", id), nil)
		}
		return nil, services.Wrap(services.ErrStorageUnavailable, "queue", "read", "read document", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "queue", "read", fmt.Sprintf("decode %s", id), err)
	}
	if doc.Version != documentVersion {
		return nil, services.Wrap(services.ErrIntegrity, "queue", "read", id, fmt.Errorf("%w: got %d want %d", ErrSchemaMismatch, doc.Version, documentVersion))
	}
	if doc.Submission == nil || doc.Submission.ID != id {
		return nil, services.Wrap(services.ErrIntegrity, "queue", "read", fmt.Sprintf("document %s does not match its file name", id), nil)
	}
	return doc.Submission, nil
}

func (s *Store) write(sub *submission.Submission) error {
	data, err := json.MarshalIndent(document{Version: documentVersion, Submission: sub}, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIntegrity, "queue", "write", "encode document", err)
	}
	if err := fileutil.WriteFileAtomic(s.docPath(sub.ID), data, 0o644); err != nil {
		return services.Wrap(services.ErrStorageUnavailable, "queue", "write", "publish document", err)
	}
	return nil
}

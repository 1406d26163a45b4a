package accessreq

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
)

const ticketSuffix = ".json"

// Store keeps one JSON document per ticket on the shared data root.
type Store struct {
	dir    string
	coord  *coord.Coordinator
	logger *slog.Logger
	now    func() time.Time
}

// Open prepares the ticket directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	dir := cfg.AccessRequestDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "accessreq", "open", "ticket directory unavailable", err)
	}
	backoff := time.Duration(cfg.Coordinator.LockBackoffMS) * time.Millisecond
	return &Store{
		dir:    dir,
		coord:  coord.New(filepath.Join(dir, "locks"), cfg.Coordinator.LockAttempts, backoff, logger),
		logger: logging.NewComponentLogger(logger, "accessreq"),
		now:    time.Now,
	}, nil
}

// Create returns the ticket for req's submission, opening one when none is.
// An existing open ticket is refreshed with the latest failure detail instead
// of duplicated. The returned bool is true when a new ticket was written.
func (s *Store) Create(ctx context.Context, req Request) (*Request, bool, error) {
	subID := req.SubmissionID()
	if subID == "" {
		return nil, false, services.Wrap(services.ErrValidation, "accessreq", "create", "submission snapshot is required", nil)
	}
	var (
		out     *Request
		created bool
	)
	err := s.coord.WithLock(ctx, lockKey(subID), func() error {
		now := s.now().UTC()
		existing, err := s.FindOpen(ctx, subID)
		if err != nil && !errors.Is(err, services.ErrNotFound) {
			return err
		}
		if existing != nil {
			existing.Attempts++
			existing.UpdatedAt = now
			existing.Error = req.Error
			existing.Destination = req.Destination
			if req.StagedPath != "" {
				existing.StagedPath = req.StagedPath
			}
			existing.Remediation = DefaultRemediation(existing.Destination, existing.StagedPath)
			out = existing
			return s.write(existing)
		}
		req.ID = uuid.NewString()
		req.CreatedAt = now
		req.UpdatedAt = now
		req.Status = StatusPendingManual
		req.Attempts = 1
		if len(req.Remediation) == 0 {
			req.Remediation = DefaultRemediation(req.Destination, req.StagedPath)
		}
		out = &req
		created = true
		return s.write(&req)
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		logging.WarnWithContext(s.logger, "manual placement required", "access_request_opened",
			logging.String("ticket_id", out.ID),
			logging.String(logging.FieldSubmissionID, subID),
			logging.String("destination", out.Destination),
			logging.String(logging.FieldErrorHint, out.Error),
			logging.String(logging.FieldImpact, "approved artifact awaits manual placement"),
		)
	}
	return out, created, nil
}

// Get loads one ticket.
func (s *Store) Get(ctx context.Context, id string) (*Request, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return s.read(id)
}

// FindOpen returns the pending ticket for a submission, if any.
func (s *Store) FindOpen(ctx context.Context, submissionID string) (*Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, req := range all {
		if req.Status.IsOpen() && req.SubmissionID() == submissionID {
			return req, nil
		}
	}
	return nil, services.Wrap(services.ErrNotFound, "accessreq", "find", fmt.Sprintf("no open ticket for %s", submissionID), nil)
}

// List returns every ticket, newest first. Unreadable files are skipped and logged.
func (s *Store) List(ctx context.Context) ([]*Request, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrStorageUnavailable, "accessreq", "list", "read ticket directory", err)
	}
	out := make([]*Request, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ticketSuffix) {
			continue
		}
		req, err := s.read(strings.TrimSuffix(name, ticketSuffix))
		if err != nil {
			logging.WarnWithContext(s.logger, "skipping unreadable ticket", "access_request_unreadable",
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect or remove the file by hand"),
				logging.String(logging.FieldImpact, "ticket is hidden from listings"),
			)
			continue
		}
		out = append(out, req)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListPending returns open tickets, newest first.
func (s *Store) ListPending(ctx context.Context) ([]*Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, req := range all {
		if req.Status.IsOpen() {
			out = append(out, req)
		}
	}
	return out, nil
}

// Complete marks a ticket manually completed. Completing a closed ticket is
// a no-op that returns it unchanged.
func (s *Store) Complete(ctx context.Context, id, actor string) (*Request, error) {
	return s.close(ctx, id, func(req *Request, now time.Time) {
		req.Status = StatusManuallyCompleted
		req.CompletedBy = actor
		req.CompletedAt = &now
	})
}

// MarkAutoCompleted closes a ticket after a retried placement succeeded.
func (s *Store) MarkAutoCompleted(ctx context.Context, id, finalPath string) (*Request, error) {
	return s.close(ctx, id, func(req *Request, now time.Time) {
		req.Status = StatusAutomaticallyCompleted
		req.FinalPath = finalPath
		req.CompletedAt = &now
	})
}

func (s *Store) close(ctx context.Context, id string, apply func(*Request, time.Time)) (*Request, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	current, err := s.read(id)
	if err != nil {
		return nil, err
	}
	// Create refreshes open tickets under the submission key, so closing
	// takes the same key and re-reads before deciding.
	var out *Request
	err = s.coord.WithLock(ctx, lockKey(current.SubmissionID()), func() error {
		req, err := s.read(id)
		if err != nil {
			return err
		}
		out = req
		if !req.Status.IsOpen() {
			return nil
		}
		now := s.now().UTC()
		apply(req, now)
		req.UpdatedAt = now
		return s.write(req)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lockKey(submissionID string) string { return "submission-" + submissionID }

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return services.Wrap(services.ErrValidation, "accessreq", "validate", fmt.Sprintf("invalid ticket id %q", id), nil)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+ticketSuffix)
}

func (s *Store) read(id string) (*Request, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "accessreq", "read", fmt.Sprintf("ticket %s not found", id), nil)
		}
		return nil, services.Wrap(services.ErrStorageUnavailable, "accessreq", "read", "read ticket", err)
	}
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "accessreq", "read", fmt.Sprintf("decode ticket %s", id), err)
	}
	if req.ID != id {
		return nil, services.Wrap(services.ErrIntegrity, "accessreq", "read", fmt.Sprintf("ticket %s does not match its file name", id), nil)
	}
	return &req, nil
}

func (s *Store) write(req *Request) error {
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIntegrity, "accessreq", "write", "encode ticket", err)
	}
	if err := fileutil.WriteFileAtomic(s.path(req.ID), data, 0o644); err != nil {
		return services.Wrap(services.ErrStorageUnavailable, "accessreq", "write", "publish ticket", err)
	}
	return nil
}

package shadow

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

	"docket/internal/config"
	"docket/internal/coord"
	"docket/internal/fileutil"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/submission"
	"docket/internal/textutil"
)

const (
	ledgerFile    = "ledger.json"
	ledgerLockKey = "ledger"
	ledgerVersion = 1
)

type ledgerDoc struct {
	Version int                `json:"version"`
	Owner   string             `json:"owner"`
	Records map[string]*Record `json:"records"`
}

// Ledger stores one JSON document per submitter, keyed by artifact name.
// Each document is guarded by its own advisory lock so two sessions of the
// same user never interleave writes.
type Ledger struct {
	root     string
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// New returns a ledger rooted at cfg's ledger directory.
func New(cfg *config.Config, logger *slog.Logger) *Ledger {
	return &Ledger{
		root:     cfg.LedgerRoot(),
		attempts: cfg.Coordinator.LockAttempts,
		backoff:  time.Duration(cfg.Coordinator.LockBackoffMS) * time.Millisecond,
		logger:   logging.NewComponentLogger(logger, "shadow"),
		now:      time.Now,
	}
}

func (l *Ledger) ownerDir(owner string) string {
	return filepath.Join(l.root, textutil.SanitizeSegment(owner, "_"))
}

func (l *Ledger) lock(owner string) *coord.Coordinator {
	return coord.New(l.ownerDir(owner), l.attempts, l.backoff, l.logger)
}

// Get returns the record for one artifact.
func (l *Ledger) Get(ctx context.Context, owner, artifact string) (*Record, error) {
	doc, err := l.load(owner)
	if err != nil {
		return nil, err
	}
	rec, ok := doc.Records[artifact]
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "shadow", "get", fmt.Sprintf("no record for %s", artifact), nil)
	}
	return rec, nil
}

// List returns the owner's records, most recently updated first.
func (l *Ledger) List(ctx context.Context, owner string) ([]*Record, error) {
	doc, err := l.load(owner)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(doc.Records))
	for _, rec := range doc.Records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ArtifactName < out[j].ArtifactName
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Update applies fn to the artifact's record under the owner's lock. A
// missing record starts as a draft. fn receives a private copy.
func (l *Ledger) Update(ctx context.Context, owner, artifact string, fn func(*Record) error) (*Record, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(artifact) == "" {
		return nil, services.Wrap(services.ErrValidation, "shadow", "update", "owner and artifact are required", nil)
	}
	var updated *Record
	err := l.lock(owner).WithLock(ctx, ledgerLockKey, func() error {
		doc, err := l.load(owner)
		if err != nil {
			return err
		}
		now := l.now().UTC()
		current, ok := doc.Records[artifact]
		if !ok {
			current = &Record{ArtifactName: artifact, Status: submission.StatusDraft, CreatedAt: now}
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ArtifactName = artifact
		next.UpdatedAt = now
		doc.Records[artifact] = next
		if err := l.save(owner, doc); err != nil {
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


func (l *Ledger) load(owner string) (*ledgerDoc, error) {
	path := filepath.Join(l.ownerDir(owner), ledgerFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ledgerDoc{Version: ledgerVersion, Owner: owner, Records: make(map[string]*Record)}, nil
		}
		return nil, services.Wrap(services.ErrStorageUnavailable, "shadow", "load", "read ledger", err)
	}
	var doc ledgerDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, services.Wrap(services.ErrIntegrity, "shadow", "load", fmt.Sprintf("decode ledger for %s", owner), err)
	}
	if doc.Version != ledgerVersion {
		return nil, services.Wrap(services.ErrIntegrity, "shadow", "load", fmt.Sprintf("ledger version %d unsupported", doc.Version), nil)
	}
	if doc.Records == nil {
		doc.Records = make(map[string]*Record)
	}
	return &doc, nil
}

func (l *Ledger) save(owner string, doc *ledgerDoc) error {
	doc.Version = ledgerVersion
	doc.Owner = owner
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIntegrity, "shadow", "save", "encode ledger", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(l.ownerDir(owner), ledgerFile), data, 0o644); err != nil {
		return services.Wrap(services.ErrStorageUnavailable, "shadow", "save", "publish ledger", err)
	}
	l.logger.Debug("ledger saved", logging.String(logging.FieldActor, owner), logging.Int("records", len(doc.Records)))
	return nil
}

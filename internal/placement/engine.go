package placement

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"docket/internal/config"
	"docket/internal/fileutil"
	"docket/internal/logging"
	"docket/internal/services"
	"docket/internal/submission"
	"docket/internal/textutil"
)

// Result describes what happened to an approved artifact.
type Result struct {
	Outcome     submission.PlacementOutcome
	Destination string
	FinalPath   string
	StagedPath  string
	ContentHash string
	// Reused is set when an earlier attempt had already placed the artifact.
	Reused bool
	// Cause holds the failure that prevented final placement.
	Cause error
}

// Info converts the result into the record stored on the submission.
func (r Result) Info(ticketID string, at time.Time) *submission.PlacementInfo {
	return &submission.PlacementInfo{
		Outcome:     r.Outcome,
		FinalPath:   r.FinalPath,
		StagedPath:  r.StagedPath,
		TicketID:    ticketID,
		ContentHash: r.ContentHash,
		At:          at.UTC(),
	}
}

// Engine moves approved artifacts into the projects tree, falling back to a
// staging area when the tree is unreachable.
type Engine struct {
	projectsRoot string
	stagingRoot  string
	probeTimeout time.Duration
	maxSuffix    int
	sidecars     bool
	logger       *slog.Logger
	now          func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for destination years and name suffixes.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine from the placement settings in cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		projectsRoot: cfg.Paths.ProjectsDir,
		stagingRoot:  cfg.Paths.StagingDir,
		probeTimeout: time.Duration(cfg.Placement.ProbeTimeoutSeconds) * time.Second,
		maxSuffix:    cfg.Placement.MaxNumericSuffix,
		sidecars:     cfg.Placement.WriteSidecar,
		logger:       logging.NewComponentLogger(logger, "placement"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Destination returns the permanent directory for sub: <projects>/<team>/<year>.
// The year is taken from the admin approval so retries land in the same place.
func (e *Engine) Destination(sub *submission.Submission) string {
	return filepath.Join(e.projectsRoot, teamSegment(sub.Team), strconv.Itoa(approvalTime(sub, e.now()).Year()))
}

// StagingDir returns the fallback directory for sub: <staging>/<team>/<id>.
func (e *Engine) StagingDir(sub *submission.Submission) string {
	return filepath.Join(e.stagingRoot, teamSegment(sub.Team), sub.ID)
}

// Place relocates source (normally the working copy) for an approved
// submission. It never returns an error for unreachable storage: the result
// then reports a staged or ticketed outcome with the cause attached.
func (e *Engine) Place(ctx context.Context, sub *submission.Submission, source string) Result {
	logger := logging.WithContext(ctx, e.logger)
	dest := e.Destination(sub)
	result := Result{Destination: dest}
	source = e.resolveSource(sub, source)

	if finalPath, sc, ok := findPlaced(dest, sub.ID); ok {
		if e.sameContent(source, sc.ContentHash) {
			removeSource(logger, source)
			result.Outcome = submission.PlacementPlaced
			result.FinalPath = finalPath
			result.ContentHash = sc.ContentHash
			result.Reused = true
			logger.Info("artifact already placed",
				logging.Args(logging.DecisionAttrs("placement", "reused", "sidecar_match")...)...,
			)
			return result
		}
	}

	finalPath, hash, err := e.placeInto(ctx, sub, source, e.projectsRoot, dest)
	if err == nil {
		result.Outcome = submission.PlacementPlaced
		result.FinalPath = finalPath
		result.ContentHash = hash
		logger.Info("artifact placed",
			logging.String("final_path", finalPath),
			logging.String("content_hash", hash),
		)
		return result
	}
	result.Cause = err
	reason := "move_failed"
	if isUnavailable(err) {
		reason = "storage_unavailable"
	}
	logging.WarnWithContext(logger, "placement into projects failed", "placement_failed",
		logging.String("destination", dest),
		logging.Error(err),
		logging.String("decision_reason", reason),
		logging.String(logging.FieldErrorHint, "check that the projects share is mounted and writable"),
		logging.String(logging.FieldImpact, "artifact will be staged for manual placement"),
	)

	stageDir := e.StagingDir(sub)
	if source != "" && filepath.Dir(source) == stageDir {
		result.Outcome = submission.PlacementStaged
		result.StagedPath = source
		return result
	}
	staged, hash, stageErr := e.stageInto(ctx, sub, source, stageDir)
	if stageErr != nil {
		logging.WarnWithContext(logger, "staging fallback failed", "staging_failed",
			logging.String("staging_dir", stageDir),
			logging.Error(stageErr),
			logging.String(logging.FieldErrorHint, "check staging_dir on the data root"),
			logging.String(logging.FieldImpact, "artifact stays in the working area until placed by hand"),
		)
		result.Outcome = submission.PlacementTicketed
		return result
	}
	result.Outcome = submission.PlacementStaged
	result.StagedPath = staged
	result.ContentHash = hash
	logger.Info("artifact staged", logging.String("staged_path", staged))
	return result
}

// Discard deletes the working copy of a rejected artifact. A missing file is
// not an error.
func (e *Engine) Discard(ctx context.Context, sub *submission.Submission) error {
	path := sub.Artifact.WorkingPath
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrStorageUnavailable, "placement", "discard", "delete working copy", err)
	}
	logging.WithContext(ctx, e.logger).Info("working copy deleted", logging.String("path", path))
	return nil
}

func (e *Engine) placeInto(ctx context.Context, sub *submission.Submission, source, root, dir string) (string, string, error) {
	if err := probeWritable(ctx, root, dir, e.probeTimeout); err != nil {
		return "", "", err
	}
	if _, err := os.Stat(source); err != nil {
		return "", "", fmt.Errorf("artifact unavailable: %w", err)
	}
	at := e.now()
	finalPath, hash, err := moveIntoDir(e.logger, source, dir, sub.Artifact.Name, func(dir, name string) (string, error) {
		return nextFreeName(dir, name, e.maxSuffix, at)
	})
	if err != nil {
		return "", "", err
	}
	if e.sidecars {
		if err := writeSidecar(finalPath, newSidecar(sub, finalPath, hash, source, at)); err != nil {
			logging.WarnWithContext(e.logger, "sidecar write failed", "sidecar_write_failed",
				logging.String("final_path", finalPath),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the artifact is placed; provenance can be rewritten by retrying"),
				logging.String(logging.FieldImpact, "placement provenance is missing"),
			)
		}
	}
	return finalPath, hash, nil
}

func (e *Engine) stageInto(ctx context.Context, sub *submission.Submission, source, dir string) (string, string, error) {
	// Staging lives on the data root, so unlike the projects root it is
	// created on demand.
	if err := os.MkdirAll(e.stagingRoot, 0o755); err != nil {
		return "", "", fmt.Errorf("create staging root: %w", err)
	}
	if err := probeWritable(ctx, e.stagingRoot, dir, e.probeTimeout); err != nil {
		return "", "", err
	}
	if _, err := os.Stat(source); err != nil {
		return "", "", fmt.Errorf("artifact unavailable: %w", err)
	}
	return moveIntoDir(e.logger, source, dir, sub.Artifact.Name, func(dir, name string) (string, error) {
		return nextFreeName(dir, name, e.maxSuffix, e.now())
	})
}

// resolveSource falls back to a copy staged by an earlier attempt when the
// working copy is gone.
func (e *Engine) resolveSource(sub *submission.Submission, source string) string {
	if source != "" {
		if _, err := os.Stat(source); err == nil {
			return source
		}
	}
	staged := filepath.Join(e.StagingDir(sub), sub.Artifact.Name)
	if _, err := os.Stat(staged); err == nil {
		return staged
	}
	return source
}

// sameContent reports whether source is gone or matches hash.
func (e *Engine) sameContent(source, hash string) bool {
	if source == "" {
		return true
	}
	current, err := fileutil.ContentHash(source)
	if err != nil {
		return errors.Is(err, fs.ErrNotExist)
	}
	return current == hash
}

func teamSegment(team string) string {
	return textutil.SanitizeSegment(team, "unassigned")
}

func approvalTime(sub *submission.Submission, fallback time.Time) time.Time {
	for i := len(sub.History) - 1; i >= 0; i-- {
		if sub.History[i].Status == submission.StatusApproved {
			return sub.History[i].At
		}
	}
	return fallback
}

package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docket/internal/logging"
)

// SweepResult contains the outcome of a staging sweep.
type SweepResult struct {
	Removed []string
	Kept    int
	Errors  []SweepError
}

// SweepError pairs a directory path with its removal error.
type SweepError struct {
	Path  string
	Error error
}

// Dir describes one staged submission directory.
type Dir struct {
	Team         string
	SubmissionID string
	Path         string
	ModTime      time.Time
	Size         int64
}

// List returns every <team>/<submission id> directory under root.
func List(root string) ([]Dir, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}
	teams, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var dirs []Dir
	for _, team := range teams {
		if !team.IsDir() {
			continue
		}
		teamPath := filepath.Join(root, team.Name())
		entries, err := os.ReadDir(teamPath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			path := filepath.Join(teamPath, entry.Name())
			size, _ := dirSize(path)
			dirs = append(dirs, Dir{
				Team:         team.Name(),
				SubmissionID: entry.Name(),
				Path:         path,
				ModTime:      info.ModTime(),
				Size:         size,
			})
		}
	}
	return dirs, nil
}

// Sweep removes staged submission directories that are not in keep and are
// older than minAge. Young directories survive so an approval still writing
// its staged copy is never raced.
func Sweep(ctx context.Context, root string, keep map[string]struct{}, minAge time.Duration, logger *slog.Logger) SweepResult {
	result := SweepResult{}
	dirs, err := List(root)
	if err != nil {
		result.Errors = append(result.Errors, SweepError{Path: root, Error: err})
		return result
	}
	cutoff := time.Now().Add(-minAge)
	for _, dir := range dirs {
		if ctx.Err() != nil {
			break
		}
		if _, active := keep[dir.SubmissionID]; active || dir.ModTime.After(cutoff) {
			result.Kept++
			continue
		}
		if err := os.RemoveAll(dir.Path); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir.Path, Error: err})
			if logger != nil {
				logging.WarnWithContext(logger, "failed to remove staged copy", "staging_cleanup_failed",
					logging.String("path", dir.Path),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check staging_dir permissions"),
					logging.String(logging.FieldImpact, "disk space not reclaimed"),
				)
			}
			continue
		}
		result.Removed = append(result.Removed, dir.Path)
		if logger != nil {
			logger.Info("removed staged copy",
				logging.String("path", dir.Path),
				logging.String(logging.FieldSubmissionID, dir.SubmissionID),
				logging.Int64("bytes", dir.Size),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
		// Drop the team directory once its last submission is gone.
		_ = os.Remove(filepath.Dir(dir.Path))
	}
	return result
}

func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.WalkDir(path, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
			}
		}
		return nil
	})
	return size, err
}

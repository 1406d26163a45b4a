package placement

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"docket/internal/fileutil"
	"docket/internal/logging"
)

// maxNameRaces bounds retries when another session claims a chosen name
// between the free-name scan and the move.
const maxNameRaces = 5

// moveIntoDir moves source into dir under the first free variant of name and
// returns the final path and content hash. Hard links publish without ever
// clobbering an existing file; filesystems that refuse links (cross-device,
// some network shares) fall back to a verified copy.
func moveIntoDir(logger *slog.Logger, source, dir, name string, nextName func(dir, name string) (string, error)) (string, string, error) {
	for attempt := 0; attempt < maxNameRaces; attempt++ {
		chosen, err := nextName(dir, name)
		if err != nil {
			return "", "", err
		}
		target := filepath.Join(dir, chosen)
		hash, err := moveFile(logger, source, target)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", err
		}
		return target, hash, nil
	}
	return "", "", fmt.Errorf("%w: destination names kept colliding in %s", fs.ErrExist, dir)
}

func moveFile(logger *slog.Logger, source, target string) (string, error) {
	linkErr := os.Link(source, target)
	if linkErr == nil {
		hash, err := fileutil.ContentHash(target)
		if err != nil {
			_ = os.Remove(target)
			return "", fmt.Errorf("hash placed file: %w", err)
		}
		removeSource(logger, source)
		return hash, nil
	}
	if errors.Is(linkErr, fs.ErrExist) {
		return "", linkErr
	}
	if errors.Is(linkErr, fs.ErrNotExist) {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("source missing: %w", err)
		}
	}

	hash, err := fileutil.CopyFileVerified(source, target)
	if err != nil {
		return "", err
	}
	removeSource(logger, source)
	return hash, nil
}

func removeSource(logger *slog.Logger, source string) {
	if err := os.Remove(source); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(logger, "failed to remove source after placement; duplicate copy remains", "placement_source_cleanup_failed",
			logging.String("source", source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the working copy by hand"),
			logging.String(logging.FieldImpact, "the artifact exists in two places"),
		)
	}
}

package placement

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const timestampLayout = "20060102T150405"

// candidateNames yields conflict-free names for name in dir: the name itself,
// then name_1.ext through name_<max>.ext, then name_<timestamp>.ext.
func candidateNames(name string, maxSuffix int, at time.Time) []string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	out := make([]string, 0, maxSuffix+2)
	out = append(out, name)
	for i := 1; i <= maxSuffix; i++ {
		out = append(out, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
	out = append(out, fmt.Sprintf("%s_%s%s", stem, at.UTC().Format(timestampLayout), ext))
	return out
}

// nextFreeName returns the first candidate for which neither the file nor
// its sidecar exists.
func nextFreeName(dir, name string, maxSuffix int, at time.Time) (string, error) {
	for _, candidate := range candidateNames(name, maxSuffix, at) {
		taken, err := anyExists(filepath.Join(dir, candidate), filepath.Join(dir, sidecarName(candidate)))
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free name for %s in %s", fs.ErrExist, name, dir)
}

func anyExists(paths ...string) (bool, error) {
	for _, path := range paths {
		if _, err := os.Lstat(path); err == nil {
			return true, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}

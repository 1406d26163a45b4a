package placement

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"docket/internal/fileutil"
	"docket/internal/submission"
)

const sidecarSuffix = ".meta.yaml"

// Sidecar is the provenance file written next to a placed artifact.
type Sidecar struct {
	SubmissionID string         `yaml:"submission_id"`
	Artifact     string         `yaml:"artifact"`
	Submitter    string         `yaml:"submitter"`
	Team         string         `yaml:"team"`
	Description  string         `yaml:"description,omitempty"`
	Tags         []string       `yaml:"tags,omitempty"`
	ContentHash  string         `yaml:"content_hash"`
	HashAlgo     string         `yaml:"hash_algorithm"`
	Size         int64          `yaml:"size"`
	PlacedAt     time.Time      `yaml:"placed_at"`
	ApprovedBy   string         `yaml:"approved_by,omitempty"`
	ReviewedBy   string         `yaml:"reviewed_by,omitempty"`
	Source       string         `yaml:"source"`
	History      []SidecarEvent `yaml:"history"`
}

// SidecarEvent is one review step recorded in the sidecar.
type SidecarEvent struct {
	Status  string    `yaml:"status"`
	Actor   string    `yaml:"actor"`
	At      time.Time `yaml:"at"`
	Comment string    `yaml:"comment,omitempty"`
}

func sidecarName(fileName string) string {
	return fileName + sidecarSuffix
}

func newSidecar(sub *submission.Submission, finalPath, hash, source string, at time.Time) Sidecar {
	var size int64
	if info, err := os.Stat(finalPath); err == nil {
		size = info.Size()
	}
	sc := Sidecar{
		SubmissionID: sub.ID,
		Artifact:     sub.Artifact.Name,
		Submitter:    sub.SubmitterID,
		Team:         sub.Team,
		Description:  sub.Description,
		Tags:         append([]string(nil), sub.Tags...),
		ContentHash:  hash,
		HashAlgo:     "blake3",
		Size:         size,
		PlacedAt:     at.UTC(),
		ApprovedBy:   sub.AdminActor,
		ReviewedBy:   sub.TeamLeadActor,
		Source:       source,
	}
	for _, entry := range sub.History {
		sc.History = append(sc.History, SidecarEvent{
			Status:  string(entry.Status),
			Actor:   entry.Actor,
			At:      entry.At,
			Comment: entry.Comment,
		})
	}
	return sc
}

func writeSidecar(finalPath string, sc Sidecar) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	return fileutil.WriteFileAtomic(finalPath+sidecarSuffix, data, 0o644)
}

// ReadSidecar loads the sidecar stored next to finalPath.
func ReadSidecar(finalPath string) (Sidecar, error) {
	var sc Sidecar
	data, err := os.ReadFile(finalPath + sidecarSuffix)
	if err != nil {
		return sc, err
	}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return sc, fmt.Errorf("decode sidecar: %w", err)
	}
	return sc, nil
}

// findPlaced scans dir for a sidecar naming submissionID and returns the
// artifact path it describes.
func findPlaced(dir, submissionID string) (string, Sidecar, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", Sidecar{}, false
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sidecarSuffix) {
			continue
		}
		finalPath := filepath.Join(dir, strings.TrimSuffix(name, sidecarSuffix))
		sc, err := ReadSidecar(finalPath)
		if err != nil || sc.SubmissionID != submissionID {
			continue
		}
		if _, err := os.Stat(finalPath); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return finalPath, sc, true
	}
	return "", Sidecar{}, false
}

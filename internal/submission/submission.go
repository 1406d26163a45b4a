package submission

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrReasonRequired is returned when a rejection or change request has no comment.
var ErrReasonRequired = errors.New("reason required")

// Artifact identifies the file under review in its owner's working area.
type Artifact struct {
	OwnerID     string `json:"owner_id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	WorkingPath string `json:"working_path"`
}

// HistoryEntry records one status change.
type HistoryEntry struct {
	Status  Status    `json:"status"`
	Actor   string    `json:"actor"`
	At      time.Time `json:"at"`
	Comment string    `json:"comment,omitempty"`
}

// PlacementOutcome describes where an approved artifact ended up.
type PlacementOutcome string

const (
	PlacementPlaced   PlacementOutcome = "placed"
	PlacementStaged   PlacementOutcome = "staged"
	PlacementTicketed PlacementOutcome = "ticketed"
)

// PlacementInfo is attached to approved submissions once movement ran.
type PlacementInfo struct {
	Outcome     PlacementOutcome `json:"outcome"`
	FinalPath   string           `json:"final_path,omitempty"`
	StagedPath  string           `json:"staged_path,omitempty"`
	TicketID    string           `json:"ticket_id,omitempty"`
	ContentHash string           `json:"content_hash,omitempty"`
	At          time.Time        `json:"at"`
}

// Submission is the authoritative record of one artifact's trip through review.
type Submission struct {
	ID                    string         `json:"id"`
	Artifact              Artifact       `json:"artifact"`
	SubmitterID           string         `json:"submitter_id"`
	Team                  string         `json:"team"`
	Status                Status         `json:"status"`
	Description           string         `json:"description,omitempty"`
	Tags                  []string       `json:"tags,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
	TeamLeadActor         string         `json:"team_lead_actor,omitempty"`
	AdminActor            string         `json:"admin_actor,omitempty"`
	RejectionReasons      []string       `json:"rejection_reasons,omitempty"`
	History               []HistoryEntry `json:"history"`
	ArtifactInWorkingArea bool           `json:"artifact_in_working_area"`
	Placement             *PlacementInfo `json:"placement,omitempty"`
	PreviousID            string         `json:"previous_id,omitempty"`
}

// Validate checks the fields every persisted submission must carry.
func (s *Submission) Validate() error {
	if s == nil {
		return errors.New("submission is nil")
	}
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("submission id is required")
	}
	if strings.TrimSpace(s.SubmitterID) == "" {
		return fmt.Errorf("submission %s: submitter is required", s.ID)
	}
	if strings.TrimSpace(s.Team) == "" {
		return fmt.Errorf("submission %s: team is required", s.ID)
	}
	if strings.TrimSpace(s.Artifact.Name) == "" {
		return fmt.Errorf("submission %s: artifact name is required", s.ID)
	}
	if _, ok := statusSet[s.Status]; !ok {
		return fmt.Errorf("submission %s: unknown status %q", s.ID, s.Status)
	}
	return nil
}

// Clone returns a deep copy so callers can snapshot a record before mutating it.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	out := *s
	out.Tags = append([]string(nil), s.Tags...)
	out.RejectionReasons = append([]string(nil), s.RejectionReasons...)
	out.History = append([]HistoryEntry(nil), s.History...)
	if s.Placement != nil {
		p := *s.Placement
		out.Placement = &p
	}
	return &out
}

// LastEntry returns the most recent history entry.
func (s *Submission) LastEntry() (HistoryEntry, bool) {
	if s == nil || len(s.History) == 0 {
		return HistoryEntry{}, false
	}
	return s.History[len(s.History)-1], true
}

// NormalizeTags trims, drops empties, and de-duplicates tags preserving order.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	return out
}

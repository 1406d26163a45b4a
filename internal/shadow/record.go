package shadow

import (
	"time"

	"docket/internal/submission"
)

// Record is the submitter-side mirror of one artifact's review state. It is
// never authoritative: the queue and the archive win on any disagreement.
type Record struct {
	ArtifactName     string                    `json:"artifact_name"`
	SubmissionID     string                    `json:"submission_id,omitempty"`
	Status           submission.Status         `json:"status"`
	Team             string                    `json:"team,omitempty"`
	Description      string                    `json:"description,omitempty"`
	Tags             []string                  `json:"tags,omitempty"`
	TeamLeadComments []string                  `json:"team_lead_comments,omitempty"`
	AdminComments    []string                  `json:"admin_comments,omitempty"`
	History          []submission.HistoryEntry `json:"history,omitempty"`
	ArtifactPresent  bool                      `json:"artifact_present"`
	WorkingPath      string                    `json:"working_path,omitempty"`
	PlacementNote    string                    `json:"placement_note,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
	UpdatedAt        time.Time                 `json:"updated_at"`
	// Previous holds the state before the active submission, restored on withdrawal.
	Previous *Record `json:"previous,omitempty"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Tags = append([]string(nil), r.Tags...)
	out.TeamLeadComments = append([]string(nil), r.TeamLeadComments...)
	out.AdminComments = append([]string(nil), r.AdminComments...)
	out.History = append([]submission.HistoryEntry(nil), r.History...)
	out.Previous = r.Previous.Clone()
	return &out
}

// Snapshot returns a copy without the Previous chain, suitable for storing as
// the pre-submission state of the next submission.
func (r *Record) Snapshot() *Record {
	out := r.Clone()
	out.Previous = nil
	return out
}

// Mirror overwrites the record's review fields from the authoritative submission.
func (r *Record) Mirror(sub *submission.Submission) {
	r.SubmissionID = sub.ID
	r.Status = sub.Status
	r.Team = sub.Team
	r.Description = sub.Description
	r.Tags = append([]string(nil), sub.Tags...)
	r.History = append([]submission.HistoryEntry(nil), sub.History...)
	r.ArtifactPresent = sub.ArtifactInWorkingArea
	r.WorkingPath = sub.Artifact.WorkingPath
	r.TeamLeadComments, r.AdminComments = splitComments(sub)
	if sub.Placement != nil {
		r.PlacementNote = placementNote(sub.Placement)
	}
}

// InSync reports whether the record already reflects sub.
func (r *Record) InSync(sub *submission.Submission) bool {
	return r.SubmissionID == sub.ID && r.Status == sub.Status && len(r.History) == len(sub.History)
}

func splitComments(sub *submission.Submission) (teamLead, admin []string) {
	for _, entry := range sub.History {
		if entry.Comment == "" {
			continue
		}
		switch {
		case entry.Actor != "" && entry.Actor == sub.TeamLeadActor && entry.Actor != sub.AdminActor:
			teamLead = append(teamLead, entry.Comment)
		case entry.Actor != "" && entry.Actor == sub.AdminActor:
			admin = append(admin, entry.Comment)
		}
	}
	return teamLead, admin
}

func placementNote(p *submission.PlacementInfo) string {
	switch p.Outcome {
	case submission.PlacementPlaced:
		return "placed at " + p.FinalPath
	case submission.PlacementStaged:
		return "storage unavailable, staged at " + p.StagedPath + " pending manual placement"
	case submission.PlacementTicketed:
		return "storage unavailable, queued for manual placement"
	}
	return ""
}

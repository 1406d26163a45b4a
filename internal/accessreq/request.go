package accessreq

import (
	"time"

	"docket/internal/submission"
)

// Status is the lifecycle state of an access request.
type Status string

const (
	StatusPendingManual          Status = "pending_manual"
	StatusManuallyCompleted      Status = "manually_completed"
	StatusAutomaticallyCompleted Status = "automatically_completed"
)

// IsOpen reports whether the ticket still needs action.
func (s Status) IsOpen() bool { return s == StatusPendingManual }

// Request is a manual-placement ticket raised when an approved artifact could
// not be moved to its permanent location.
type Request struct {
	ID          string                 `json:"id"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	RequestedBy string                 `json:"requested_by"`
	Submission  *submission.Submission `json:"submission"`
	Destination string                 `json:"destination"`
	StagedPath  string                 `json:"staged_path,omitempty"`
	Error       string                 `json:"error"`
	Status      Status                 `json:"status"`
	Remediation []string               `json:"remediation,omitempty"`
	Attempts    int                    `json:"attempts"`
	CompletedBy string                 `json:"completed_by,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	FinalPath   string                 `json:"final_path,omitempty"`
}

// SubmissionID returns the id of the snapshot carried by the ticket.
func (r *Request) SubmissionID() string {
	if r == nil || r.Submission == nil {
		return ""
	}
	return r.Submission.ID
}

// DefaultRemediation lists the manual steps for a ticket.
func DefaultRemediation(destination, staged string) []string {
	steps := []string{"Confirm the projects share is mounted and writable: " + destination}
	if staged != "" {
		steps = append(steps, "Move the staged copy from "+staged+" into "+destination)
	} else {
		steps = append(steps, "Copy the artifact from the submitter's working area into "+destination)
	}
	steps = append(steps, "Run 'docket access retry <ticket>' or 'docket access complete <ticket>'")
	return steps
}

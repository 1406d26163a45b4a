package workflow

import (
	"docket/internal/archive"
	"docket/internal/submission"
)

// Short user-facing reasons returned in Result.Reason.
const (
	ReasonTeamMismatch     = "team mismatch"
	ReasonReasonRequired   = "reason required"
	ReasonNotSubmitter     = "only the submitter may do this"
	ReasonRoleNotPermitted = "role not permitted"
	ReasonAlreadyActive    = "artifact already under review"
	ReasonManualPlacement  = "storage unavailable - queued for manual placement"
)

// Decision is a reviewer's verdict.
type Decision string

const (
	DecisionApprove        Decision = "approve"
	DecisionReject         Decision = "reject"
	DecisionRequestChanges Decision = "changes"
)

// ParseDecision accepts CLI spellings of a decision.
func ParseDecision(value string) (Decision, bool) {
	switch value {
	case "approve", "approved":
		return DecisionApprove, true
	case "reject", "rejected":
		return DecisionReject, true
	case "changes", "request-changes", "request_changes":
		return DecisionRequestChanges, true
	}
	return "", false
}

// Result reports the outcome of a mutating operation. Domain refusals come
// back as OK=false with a short Reason and a nil error.
type Result struct {
	OK           bool                      `json:"ok"`
	Reason       string                    `json:"reason,omitempty"`
	SubmissionID string                    `json:"submission_id,omitempty"`
	Status       submission.Status         `json:"status,omitempty"`
	Placement    *submission.PlacementInfo `json:"placement,omitempty"`
	TicketID     string                    `json:"ticket_id,omitempty"`
}

func refused(reason string) Result {
	return Result{OK: false, Reason: reason}
}

// SubmitRequest describes a new submission. Team defaults to the
// submitter's first team.
type SubmitRequest struct {
	Path        string
	Description string
	Tags        []string
	Team        string
}

// ResubmitRequest reopens a rejected or sent-back submission. Ref is either
// the old submission id or the artifact name. Nil fields keep the old value.
type ResubmitRequest struct {
	Ref         string
	Description *string
	Tags        []string
}

// Source says where a listed submission was read from.
type Source string

const (
	SourceQueue   Source = "queue"
	SourceArchive Source = "archive"
	SourceLedger  Source = "ledger"
)

// SortOrder orders listings.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
	SortName   SortOrder = "name"
	SortStatus SortOrder = "status"
)

// ListOptions filters ListForActor. Team narrows admin listings and must
// match a team lead's own team.
type ListOptions struct {
	Team     string
	Statuses []submission.Status
	Search   string
	Sort     SortOrder
}

// Entry is one row of a listing.
type Entry struct {
	Submission *submission.Submission `json:"submission"`
	Source     Source                 `json:"source"`
	Bucket     archive.Bucket         `json:"bucket,omitempty"`
	Note       string                 `json:"note,omitempty"`
	Comments   int                    `json:"comments"`
}

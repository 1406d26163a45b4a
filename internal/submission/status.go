package submission

import "strings"

// Status is the authoritative lifecycle state of a submission.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusPendingTeamLead    Status = "pending_team_lead"
	StatusPendingAdmin       Status = "pending_admin"
	StatusApproved           Status = "approved"
	StatusRejectedByTeamLead Status = "rejected_by_team_lead"
	StatusRejectedByAdmin    Status = "rejected_by_admin"
	StatusChangesRequested   Status = "changes_requested"
	// StatusWithdrawn only ever appears in shadow history; withdrawn
	// submissions are deleted from the queue.
	StatusWithdrawn Status = "withdrawn"
)

var allStatuses = []Status{
	StatusDraft,
	StatusPendingTeamLead,
	StatusPendingAdmin,
	StatusApproved,
	StatusRejectedByTeamLead,
	StatusRejectedByAdmin,
	StatusChangesRequested,
	StatusWithdrawn,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

var statusLabels = map[Status]string{
	StatusDraft:              "Draft",
	StatusPendingTeamLead:    "Pending team lead",
	StatusPendingAdmin:       "Pending admin",
	StatusApproved:           "Approved",
	StatusRejectedByTeamLead: "Rejected by team lead",
	StatusRejectedByAdmin:    "Rejected by admin",
	StatusChangesRequested:   "Changes requested",
	StatusWithdrawn:          "Withdrawn",
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status, accepting the label form too.
func ParseStatus(value string) (Status, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	status := Status(normalized)
	if _, ok := statusSet[status]; ok {
		return status, true
	}
	return "", false
}

// Label returns the display label for the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsPending reports whether the submission still awaits a reviewer.
func (s Status) IsPending() bool {
	return s == StatusPendingTeamLead || s == StatusPendingAdmin
}

// IsTerminal reports whether the status closes the submission and moves it
// to the archive.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejectedByTeamLead, StatusRejectedByAdmin, StatusChangesRequested:
		return true
	}
	return false
}

// IsResubmittable reports whether the owner may send the artifact back into review.
func (s Status) IsResubmittable() bool {
	return s == StatusRejectedByTeamLead || s == StatusChangesRequested
}

package submission

import (
	"fmt"
	"strings"
	"time"
)

// Action is a request to move a submission along the review graph.
type Action string

const (
	ActionSubmit          Action = "submit"
	ActionTeamLeadApprove Action = "team_lead_approve"
	ActionTeamLeadReject  Action = "team_lead_reject"
	ActionAdminApprove    Action = "admin_approve"
	ActionAdminReject     Action = "admin_reject"
	ActionRequestChanges  Action = "request_changes"
	ActionWithdraw        Action = "withdraw"
	ActionResubmit        Action = "resubmit"
)

type edge struct {
	from   Status
	action Action
}

// transitions is the complete review graph. Anything absent is refused.
var transitions = map[edge]Status{
	{StatusDraft, ActionSubmit}:                    StatusPendingTeamLead,
	{StatusPendingTeamLead, ActionTeamLeadApprove}: StatusPendingAdmin,
	{StatusPendingTeamLead, ActionTeamLeadReject}:  StatusRejectedByTeamLead,
	{StatusPendingTeamLead, ActionRequestChanges}:  StatusChangesRequested,
	{StatusPendingAdmin, ActionAdminApprove}:       StatusApproved,
	{StatusPendingAdmin, ActionAdminReject}:        StatusRejectedByAdmin,
	{StatusPendingAdmin, ActionRequestChanges}:     StatusChangesRequested,
	{StatusPendingTeamLead, ActionWithdraw}:        StatusWithdrawn,
	{StatusPendingAdmin, ActionWithdraw}:           StatusWithdrawn,
	{StatusRejectedByTeamLead, ActionResubmit}:     StatusPendingTeamLead,
	{StatusChangesRequested, ActionResubmit}:       StatusPendingTeamLead,
}

// TransitionError is returned for an action the graph does not allow from
// the current status.
type TransitionError struct {
	From   Status
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a submission that is %s", strings.ReplaceAll(string(e.Action), "_", " "), e.From.Label())
}

// Next returns the status reached by applying action to from.
func Next(from Status, action Action) (Status, error) {
	if to, ok := transitions[edge{from, action}]; ok {
		return to, nil
	}
	return "", &TransitionError{From: from, Action: action}
}

// RequiresReason reports whether the action must carry a non-empty comment.
func RequiresReason(action Action) bool {
	switch action {
	case ActionTeamLeadReject, ActionAdminReject, ActionRequestChanges:
		return true
	}
	return false
}

// Apply moves s along the graph, recording the actor and comment in history.
// It refuses out-of-state actions and missing reasons without mutating s.
func (s *Submission) Apply(action Action, actor, comment string, at time.Time) error {
	to, err := Next(s.Status, action)
	if err != nil {
		return err
	}
	comment = strings.TrimSpace(comment)
	if RequiresReason(action) && comment == "" {
		return ErrReasonRequired
	}

	switch action {
	case ActionTeamLeadApprove, ActionTeamLeadReject:
		s.TeamLeadActor = actor
	case ActionAdminApprove, ActionAdminReject:
		s.AdminActor = actor
	case ActionRequestChanges:
		if s.Status == StatusPendingTeamLead {
			s.TeamLeadActor = actor
		} else {
			s.AdminActor = actor
		}
	}
	if RequiresReason(action) {
		s.RejectionReasons = append(s.RejectionReasons, comment)
	}
	s.Status = to
	s.History = append(s.History, HistoryEntry{Status: to, Actor: actor, At: at.UTC(), Comment: comment})
	return nil
}

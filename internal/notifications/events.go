package notifications

import (
	"fmt"
	"strings"
)

// Event identifies a workflow milestone.
type Event string

const (
	EventSubmitted               Event = "submitted"
	EventTeamLeadApproved        Event = "team_lead_approved"
	EventTeamLeadRejected        Event = "team_lead_rejected"
	EventApproved                Event = "approved"
	EventRejectedByAdmin         Event = "rejected_by_admin"
	EventChangesRequested        Event = "changes_requested"
	EventWithdrawn               Event = "withdrawn"
	EventResubmitted             Event = "resubmitted"
	EventManualPlacementRequired Event = "manual_placement_required"
	EventPlacementCompleted      Event = "placement_completed"
	EventTest                    Event = "test"
)

// Payload carries event details. Known keys: artifact, submitter, team,
// actor, reason, final_path, staged_path, ticket, id.
type Payload map[string]any

func (p Payload) str(key string) string {
	if p == nil {
		return ""
	}
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

// message is the rendered form shared by every sink.
type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

func render(event Event, payload Payload) (message, bool) {
	artifact := payload.str("artifact")
	if artifact == "" {
		artifact = "artifact"
	}
	actor := payload.str("actor")
	reason := payload.str("reason")

	switch event {
	case EventSubmitted:
		return message{
			title: "Docket - Submitted",
			body:  fmt.Sprintf("📄 %s submitted %s for %s review", payload.str("submitter"), artifact, payload.str("team")),
			tags:  []string{"docket", "submitted"},
		}, true
	case EventTeamLeadApproved:
		return message{
			title: "Docket - Team Lead Approved",
			body:  fmt.Sprintf("👍 %s approved by %s; awaiting admin review", artifact, actor),
			tags:  []string{"docket", "review", "team_lead"},
		}, true
	case EventTeamLeadRejected:
		return message{
			title:    "Docket - Rejected",
			body:     withReason(fmt.Sprintf("❌ %s rejected by team lead %s", artifact, actor), reason),
			tags:     []string{"docket", "rejected", "team_lead"},
			priority: "high",
		}, true
	case EventApproved:
		return message{
			title: "Docket - Approved",
			body:  fmt.Sprintf("✅ %s approved by %s", artifact, actor),
			tags:  []string{"docket", "approved"},
		}, true
	case EventRejectedByAdmin:
		return message{
			title:    "Docket - Rejected",
			body:     withReason(fmt.Sprintf("❌ %s rejected by admin %s", artifact, actor), reason),
			tags:     []string{"docket", "rejected", "admin"},
			priority: "high",
		}, true
	case EventChangesRequested:
		return message{
			title: "Docket - Changes Requested",
			body:  withReason(fmt.Sprintf("✏️ Changes requested on %s by %s", artifact, actor), reason),
			tags:  []string{"docket", "changes"},
		}, true
	case EventWithdrawn:
		return message{
			title: "Docket - Withdrawn",
			body:  fmt.Sprintf("%s withdrew %s", payload.str("submitter"), artifact),
			tags:  []string{"docket", "withdrawn"},
		}, true
	case EventResubmitted:
		return message{
			title: "Docket - Resubmitted",
			body:  fmt.Sprintf("🔁 %s resubmitted %s for %s review", payload.str("submitter"), artifact, payload.str("team")),
			tags:  []string{"docket", "resubmitted"},
		}, true
	case EventManualPlacementRequired:
		body := fmt.Sprintf("⚠️ Storage unavailable for %s; queued for manual placement", artifact)
		if ticket := payload.str("ticket"); ticket != "" {
			body += "\nTicket: " + ticket
		}
		if staged := payload.str("staged_path"); staged != "" {
			body += "\nStaged: " + staged
		}
		return message{
			title:    "Docket - Manual Placement Required",
			body:     body,
			tags:     []string{"docket", "placement", "alert"},
			priority: "high",
		}, true
	case EventPlacementCompleted:
		return message{
			title: "Docket - Placed",
			body:  fmt.Sprintf("📁 %s placed at %s", artifact, payload.str("final_path")),
			tags:  []string{"docket", "placement", "completed"},
		}, true
	case EventTest:
		return message{
			title:    "Docket - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"docket", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func withReason(body, reason string) string {
	if reason == "" {
		return body
	}
	return body + ": " + reason
}

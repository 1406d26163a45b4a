package submission

import (
	"fmt"
	"strings"
)

// Role is the reviewer tier a principal acts in.
type Role string

const (
	RoleUser     Role = "user"
	RoleTeamLead Role = "team_lead"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a string into a Role.
func ParseRole(value string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleUser:
		return RoleUser, true
	case RoleTeamLead, "teamlead", "lead":
		return RoleTeamLead, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Principal is the authenticated identity supplied by the host application.
type Principal struct {
	ID    string
	Role  Role
	Teams []string
}

// PrimaryTeam is the team a team lead reviews for: the first configured team.
func (p Principal) PrimaryTeam() string {
	for _, team := range p.Teams {
		if team = strings.TrimSpace(team); team != "" {
			return team
		}
	}
	return ""
}

// Validate reports a principal that cannot act at all.
func (p Principal) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("principal id is required")
	}
	switch p.Role {
	case RoleUser, RoleTeamLead, RoleAdmin:
	default:
		// Aliases are resolved by ParseRole at the edge; role checks compare
		// canonical values.
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if p.Role == RoleTeamLead && p.PrimaryTeam() == "" {
		return fmt.Errorf("team lead %s has no team", p.ID)
	}
	return nil
}

package collab

import "github.com/regulens/alertfabric/pkg/models"

// Action identifies one of the role matrix's permission checks
// from spec.md §4.6.
type Action string

const (
	ActionOverride  Action = "override"
	ActionIntervene Action = "intervene"
	ActionFeedback  Action = "feedback"
	ActionQuery     Action = "query"
	ActionChat      Action = "chat"
	ActionApprove   Action = "approve"
	ActionReject    Action = "reject"
	ActionView      Action = "view"
)

// roleMatrix is spec.md §4.6's permission table.
var roleMatrix = map[models.UserRole]map[Action]bool{
	models.RoleSupervisor: {
		ActionOverride: true, ActionIntervene: true, ActionFeedback: true, ActionQuery: true, ActionChat: true,
	},
	models.RoleOperator: {
		ActionFeedback: true, ActionApprove: true, ActionReject: true, ActionChat: true,
	},
	models.RoleAnalyst: {
		ActionQuery: true, ActionView: true,
	},
	models.RoleViewer: {
		ActionView: true,
	},
}

// Authorized reports whether user may perform action against the
// optionally-specified agent. Administrator is allowed everything;
// every other role is checked against roleMatrix and, when agentID is
// non-empty, against the user's AllowedAgents list.
func Authorized(user *models.HumanUser, action Action, agentID string) bool {
	if user == nil {
		return false
	}
	if agentID != "" && !user.AuthorizedFor(agentID) {
		return false
	}
	if user.Role == models.RoleAdministrator {
		return true
	}
	allowed, ok := roleMatrix[user.Role]
	if !ok {
		return false
	}
	return allowed[action]
}

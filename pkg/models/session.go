package models

import "time"

// CollabSessionState is the lifecycle state of a CollaborationSession.
type CollabSessionState string

// Collaboration session states.
const (
	CollabActive    CollabSessionState = "active"
	CollabPaused    CollabSessionState = "paused"
	CollabCompleted CollabSessionState = "completed"
	CollabCancelled CollabSessionState = "cancelled"
	CollabTimeout   CollabSessionState = "timeout"
)

// IsTerminal reports whether the state accepts no further messages.
func (s CollabSessionState) IsTerminal() bool {
	switch s {
	case CollabCompleted, CollabCancelled, CollabTimeout:
		return true
	default:
		return false
	}
}

// CollabMessageRole identifies the speaker of a CollabMessage.
type CollabMessageRole string

// Supported message roles.
const (
	CollabRoleUser      CollabMessageRole = "user"
	CollabRoleAgent     CollabMessageRole = "agent"
	CollabRoleOperator  CollabMessageRole = "operator"
)

// CollabMessage is one turn in a CollaborationSession.
type CollabMessage struct {
	Role      CollabMessageRole `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
}

// Feedback is an operator's rating/comment on a session.
type Feedback struct {
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Intervention records an operator override/intervention during a session.
type Intervention struct {
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// CollaborationSession is a stateful user<->agent conversation.
type CollaborationSession struct {
	SessionID    string               `json:"session_id"`
	UserID       string               `json:"user_id"`
	AgentID      string               `json:"agent_id"`
	Title        string               `json:"title,omitempty"`
	State        CollabSessionState   `json:"state"`
	Messages     []CollabMessage      `json:"messages"`
	Feedback     []Feedback           `json:"feedback,omitempty"`
	Interventions []Intervention      `json:"interventions,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	LastActivity time.Time            `json:"last_activity"`
}

// AssistanceRequest is a short-lived, operator-answerable question
// raised by an agent.
type AssistanceRequest struct {
	RequestID string         `json:"request_id"`
	AgentID   string         `json:"agent_id"`
	Kind      string         `json:"kind"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Expired reports whether the request's TTL has passed at `now`.
func (r *AssistanceRequest) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// UserRole is a HumanUser's permission role.
type UserRole string

// Supported roles, matching the §4.6 permission matrix.
const (
	RoleAdministrator UserRole = "administrator"
	RoleSupervisor    UserRole = "supervisor"
	RoleOperator      UserRole = "operator"
	RoleAnalyst       UserRole = "analyst"
	RoleViewer        UserRole = "viewer"
)

// HumanUser is a registered operator/analyst/administrator.
type HumanUser struct {
	UserID        string     `json:"user_id"`
	Role          UserRole   `json:"role"`
	AllowedAgents []string   `json:"allowed_agents,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AuthorizedFor reports whether the user may act on the given agent.
// An empty AllowedAgents list means the user is authorized for all agents.
func (u *HumanUser) AuthorizedFor(agentID string) bool {
	if agentID == "" || len(u.AllowedAgents) == 0 {
		return true
	}
	for _, a := range u.AllowedAgents {
		if a == agentID {
			return true
		}
	}
	return false
}

// CreateSessionRequest is the input to create_session.
type CreateSessionRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	AgentID string `json:"agent_id" validate:"required"`
	Title   string `json:"title,omitempty"`
}

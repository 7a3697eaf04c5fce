package collab

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestAdministratorIsAuthorizedForEverything(t *testing.T) {
	u := &models.HumanUser{UserID: "u1", Role: models.RoleAdministrator}
	assert.True(t, Authorized(u, ActionOverride, "agent1"))
	assert.True(t, Authorized(u, ActionApprove, ""))
}

func TestSupervisorMatrix(t *testing.T) {
	u := &models.HumanUser{UserID: "u1", Role: models.RoleSupervisor}
	assert.True(t, Authorized(u, ActionOverride, ""))
	assert.True(t, Authorized(u, ActionIntervene, ""))
	assert.False(t, Authorized(u, ActionApprove, ""))
}

func TestViewerCanOnlyView(t *testing.T) {
	u := &models.HumanUser{UserID: "u1", Role: models.RoleViewer}
	assert.True(t, Authorized(u, ActionView, ""))
	assert.False(t, Authorized(u, ActionChat, ""))
}

func TestAuthorizedRespectsAllowedAgents(t *testing.T) {
	u := &models.HumanUser{UserID: "u1", Role: models.RoleSupervisor, AllowedAgents: []string{"a1"}}
	assert.True(t, Authorized(u, ActionChat, "a1"))
	assert.False(t, Authorized(u, ActionChat, "a2"))
}

func TestAuthorizedNilUser(t *testing.T) {
	assert.False(t, Authorized(nil, ActionView, ""))
}

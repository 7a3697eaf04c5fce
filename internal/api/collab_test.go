package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestCollabSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	srv.collabMgr.RegisterUser(&models.HumanUser{UserID: "u1", Role: models.RoleOperator})

	createReq := models.CreateSessionRequest{UserID: "u1", AgentID: "agent-1", Title: "investigate"}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/collab/sessions", createReq)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session models.CollaborationSession
	decodeJSON(t, rec, &session)
	assert.Equal(t, models.CollabActive, session.State)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/collab/sessions/"+session.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/collab/sessions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var active []*models.CollaborationSession
	decodeJSON(t, rec, &active)
	assert.Len(t, active, 1)

	msg := models.CollabMessage{Role: models.CollabRoleOperator, Content: "what triggered this?"}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/collab/sessions/"+session.SessionID+"/messages", msg)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	fb := models.Feedback{UserID: "u1", Rating: 5}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/collab/sessions/"+session.SessionID+"/feedback", fb)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	end := map[string]string{"final_state": string(models.CollabCompleted)}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/collab/sessions/"+session.SessionID+"/end", end)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCreateSessionUnregisteredUser(t *testing.T) {
	srv, _ := newTestServer(t)
	req := models.CreateSessionRequest{UserID: "ghost", AgentID: "agent-1"}
	rec := doJSON(t, srv.Router(), http.MethodPost, "/api/v1/collab/sessions", req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssistanceRequestLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	createReq := map[string]any{
		"agent_id":    "agent-1",
		"kind":        "policy_clarification",
		"payload":     map[string]any{"question": "is this flagged?"},
		"ttl_seconds": int(time.Minute / time.Second),
	}
	rec := doJSON(t, r, http.MethodPost, "/api/v1/collab/requests", createReq)
	require.Equal(t, http.StatusCreated, rec.Code)

	var ar models.AssistanceRequest
	decodeJSON(t, rec, &ar)
	assert.NotEmpty(t, ar.RequestID)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/collab/requests?agent_id=agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pending []*models.AssistanceRequest
	decodeJSON(t, rec, &pending)
	require.Len(t, pending, 1)

	respond := map[string]any{"user_id": "u1", "response": map[string]any{"decision": "proceed"}}
	rec = doJSON(t, r, http.MethodPost, "/api/v1/collab/requests/"+ar.RequestID+"/respond", respond)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

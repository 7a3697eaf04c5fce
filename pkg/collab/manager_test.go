package collab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s := memstore.New()
	cfg := DefaultConfig()
	cfg.MaxSessionsPerUser = 2
	cfg.MaxMessagesPerSession = 3
	m := NewManager(s, cfg)
	m.RegisterUser(&models.HumanUser{UserID: "u1", Role: models.RoleOperator})
	return m
}

func TestCreateSessionRejectsUnknownUser(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateSession(context.Background(), models.CreateSessionRequest{UserID: "ghost", AgentID: "a1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestCreateSessionRejectsUnauthorizedAgent(t *testing.T) {
	m := newTestManager(t)
	m.RegisterUser(&models.HumanUser{UserID: "u2", Role: models.RoleOperator, AllowedAgents: []string{"other"}})
	_, err := m.CreateSession(context.Background(), models.CreateSessionRequest{UserID: "u2", AgentID: "a1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnauthorized))
}

func TestCreateSessionEnforcesCap(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := m.CreateSession(ctx, models.CreateSessionRequest{UserID: "u1", AgentID: "a1"})
		require.NoError(t, err)
	}
	_, err := m.CreateSession(ctx, models.CreateSessionRequest{UserID: "u1", AgentID: "a1"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrResourceExhausted))
}

func TestSendMessageEnforcesCapAndTerminalCheck(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session, err := m.CreateSession(ctx, models.CreateSessionRequest{UserID: "u1", AgentID: "a1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.SendMessage(ctx, session.SessionID, models.CollabMessage{Role: models.CollabRoleUser, Content: "hi"}))
	}
	err = m.SendMessage(ctx, session.SessionID, models.CollabMessage{Role: models.CollabRoleUser, Content: "one too many"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrResourceExhausted))

	require.NoError(t, m.EndSession(ctx, session.SessionID, models.CollabCompleted))
	err = m.SendMessage(ctx, session.SessionID, models.CollabMessage{Role: models.CollabRoleUser, Content: "too late"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound), "an ended session is removed from the active map")
}

func TestEndSessionRejectsNonTerminalState(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	session, err := m.CreateSession(ctx, models.CreateSessionRequest{UserID: "u1", AgentID: "a1"})
	require.NoError(t, err)
	err = m.EndSession(ctx, session.SessionID, models.CollabActive)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalidInput))
}

func TestCleanupTimesOutInactiveSessions(t *testing.T) {
	m := newTestManager(t)
	m.cfg.SessionTimeout = 10 * time.Millisecond
	m.cfg.CleanupInterval = 5 * time.Millisecond
	ctx := context.Background()

	session, err := m.CreateSession(ctx, models.CreateSessionRequest{UserID: "u1", AgentID: "a1"})
	require.NoError(t, err)

	m.Start(ctx)
	defer m.Stop()

	require.Eventually(t, func() bool {
		_, err := m.GetSession(session.SessionID)
		return errors.Is(err, errs.ErrNotFound)
	}, time.Second, 5*time.Millisecond, "timed-out session must be removed from the active map")
}

func TestAssistanceRequestLifecycle(t *testing.T) {
	m := newTestManager(t)
	m.cfg.MaxPendingRequests = 1

	req, err := m.CreateAssistanceRequest("agent1", "clarify", nil, time.Minute)
	require.NoError(t, err)

	_, err = m.CreateAssistanceRequest("agent1", "clarify", nil, time.Minute)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrResourceExhausted))

	pending := m.PendingRequests("agent1")
	require.Len(t, pending, 1)

	require.NoError(t, m.RespondToRequest(req.RequestID, map[string]any{"ok": true}, "u1"))
	assert.Empty(t, m.PendingRequests("agent1"))

	err = m.RespondToRequest(req.RequestID, nil, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAssistanceRequestExpires(t *testing.T) {
	m := newTestManager(t)
	req, err := m.CreateAssistanceRequest("agent1", "clarify", nil, time.Millisecond)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	err = m.RespondToRequest(req.RequestID, nil, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

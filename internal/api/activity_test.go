package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestQueryActivityAndStats(t *testing.T) {
	srv, _ := newTestServer(t)
	r := srv.Router()

	require.NoError(t, srv.feed.RecordActivity(context.Background(), models.AgentActivityEvent{
		AgentID: "agent-1", ActivityType: "decision", Severity: models.SeverityMedium, Title: "reviewed alert",
	}))

	rec := doJSON(t, r, http.MethodGet, "/api/v1/activity?agent_id=agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var events []models.AgentActivityEvent
	decodeJSON(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "agent-1", events[0].AgentID)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/activity/stats", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/v1/activity/stats/agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.AgentActivityStats
	decodeJSON(t, rec, &stats)
	assert.Equal(t, "agent-1", stats.AgentID)
}

func TestAgentStatsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Router(), http.MethodGet, "/api/v1/activity/stats/unknown-agent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

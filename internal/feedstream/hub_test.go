package feedstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/models"
	"github.com/regulens/alertfabric/pkg/notify"
)

func setupTestHub(t *testing.T) (*Hub, *activity.Feed, *notify.Service, *httptest.Server) {
	t.Helper()

	mem := memstore.New()
	feed := activity.NewFeed(mem, activity.DefaultConfig())
	svc := notify.NewService(mem, mem, mem, notify.DefaultConfig())

	hub := NewHub(NewBridge(feed, svc, mem), 5*time.Second)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			t.Logf("accept error: %v", err)
			return
		}
		hub.HandleConnection(r.Context(), conn)
	}))
	t.Cleanup(server.Close)

	return hub, feed, svc, server
}

func connectWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + server.URL[len("http"):]
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func writeMsg(t *testing.T, conn *websocket.Conn, msg ClientMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestHubConnectionEstablished(t *testing.T) {
	_, _, _, server := setupTestHub(t)
	conn := connectWS(t, server)

	msg := readJSON(t, conn)
	assert.Equal(t, "connection.established", msg["type"])
}

func TestHubActivitySubscriptionReceivesBroadcast(t *testing.T) {
	hub, feed, _, server := setupTestHub(t)
	conn := connectWS(t, server)
	readJSON(t, conn) // connection.established

	writeMsg(t, conn, ClientMessage{Action: "subscribe", Channel: "activity"})
	assert.Equal(t, "subscription.confirmed", readJSON(t, conn)["type"])

	require.Eventually(t, func() bool { return hub.ActiveConnections() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, feed.RecordActivity(context.Background(), models.AgentActivityEvent{
		AgentID:      "agent-1",
		ActivityType: "decision",
		Severity:     models.SeverityLow,
		Title:        "checked transaction",
	}))

	msg := readJSON(t, conn)
	assert.Equal(t, "activity.event", msg["type"])
	event := msg["event"].(map[string]any)
	assert.Equal(t, "agent-1", event["agent_id"])
}

func TestHubActivityChannelScopedToAgent(t *testing.T) {
	hub, feed, _, server := setupTestHub(t)
	conn := connectWS(t, server)
	readJSON(t, conn)

	writeMsg(t, conn, ClientMessage{Action: "subscribe", Channel: "activity:agent-2"})
	assert.Equal(t, "subscription.confirmed", readJSON(t, conn)["type"])
	_ = hub

	require.NoError(t, feed.RecordActivity(context.Background(), models.AgentActivityEvent{
		AgentID: "agent-1", ActivityType: "decision", Severity: models.SeverityLow, Title: "other agent",
	}))
	require.NoError(t, feed.RecordActivity(context.Background(), models.AgentActivityEvent{
		AgentID: "agent-2", ActivityType: "decision", Severity: models.SeverityLow, Title: "scoped agent",
	}))

	msg := readJSON(t, conn)
	event := msg["event"].(map[string]any)
	assert.Equal(t, "agent-2", event["agent_id"])
}

func TestHubIncidentSubscriptionReceivesBroadcast(t *testing.T) {
	_, _, svc, server := setupTestHub(t)
	conn := connectWS(t, server)
	readJSON(t, conn)

	writeMsg(t, conn, ClientMessage{Action: "subscribe", Channel: "incidents"})
	assert.Equal(t, "subscription.confirmed", readJSON(t, conn)["type"])

	require.NoError(t, svc.RaiseIncident(context.Background(), &models.AlertRule{
		RuleID: "rule-1", Name: "High value transfer", Type: models.RuleTypeThreshold, Severity: models.SeverityHigh,
	}, map[string]any{"amount": 50000}))

	msg := readJSON(t, conn)
	assert.Equal(t, "incident.created", msg["type"])
}

func TestHubUnsubscribeStopsBroadcast(t *testing.T) {
	_, feed, _, server := setupTestHub(t)
	conn := connectWS(t, server)
	readJSON(t, conn)

	writeMsg(t, conn, ClientMessage{Action: "subscribe", Channel: "activity"})
	readJSON(t, conn)
	writeMsg(t, conn, ClientMessage{Action: "unsubscribe", Channel: "activity"})

	require.NoError(t, feed.RecordActivity(context.Background(), models.AgentActivityEvent{
		AgentID: "agent-1", ActivityType: "decision", Severity: models.SeverityLow, Title: "after unsubscribe",
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, _, err := conn.Read(ctx)
	assert.Error(t, err) // read times out: no message was ever broadcast
}

func TestHubCatchupReturnsExistingIncidents(t *testing.T) {
	_, _, svc, server := setupTestHub(t)
	require.NoError(t, svc.RaiseIncident(context.Background(), &models.AlertRule{
		RuleID: "rule-2", Name: "Velocity breach", Type: models.RuleTypePattern, Severity: models.SeverityMedium,
	}, nil))

	conn := connectWS(t, server)
	readJSON(t, conn)

	writeMsg(t, conn, ClientMessage{Action: "subscribe", Channel: "incidents"})
	assert.Equal(t, "subscription.confirmed", readJSON(t, conn)["type"])

	msg := readJSON(t, conn)
	assert.Equal(t, "incident.active", msg["type"])
}

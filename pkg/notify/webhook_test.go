package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/pkg/models"
)

func TestWebhookDispatcherSuccess(t *testing.T) {
	var gotBody webhookBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newWebhookDispatcher(5 * time.Second)
	err := d.Dispatch(context.Background(), Request{
		NotificationID: "n1",
		IncidentID:     "i1",
		Channel:        &models.NotificationChannel{ChannelID: "c1", Config: map[string]any{"url": srv.URL}},
		Alert:          models.AlertPayload{Title: "hi", Severity: models.SeverityHigh},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", gotBody.Alert.Title)
	assert.Equal(t, "i1", gotBody.IncidentID)
}

func TestWebhookDispatcherNon2xxFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := newWebhookDispatcher(5 * time.Second)
	err := d.Dispatch(context.Background(), Request{
		Channel: &models.NotificationChannel{ChannelID: "c1", Config: map[string]any{"url": srv.URL}},
	})
	assert.Error(t, err)
}

func TestWebhookDispatcherMissingURL(t *testing.T) {
	d := newWebhookDispatcher(5 * time.Second)
	err := d.Dispatch(context.Background(), Request{
		Channel: &models.NotificationChannel{ChannelID: "c1", Config: map[string]any{}},
	})
	assert.Error(t, err)
}

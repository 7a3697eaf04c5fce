package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/store/memstore"
	"github.com/regulens/alertfabric/pkg/models"
)

func TestServiceSendNotificationSynchronous(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateChannel(ctx, &models.NotificationChannel{
		ChannelID: "c1", Type: models.ChannelWebhook, Enabled: true,
		Config: map[string]any{"url": srv.URL},
	}))

	cfg := DefaultConfig()
	svc := NewService(s, s, s, cfg)

	id, err := svc.SendNotification(ctx, models.SendNotificationRequest{
		IncidentID: "i1",
		ChannelID:  "c1",
		Alert:      models.AlertPayload{Title: "t", Severity: models.SeverityLow},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	attempts, err := s.ListByIncident(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.DeliveryDelivered, attempts[0].Status)
}

func TestServiceSendNotificationRetriesOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateChannel(ctx, &models.NotificationChannel{
		ChannelID: "c1", Type: models.ChannelWebhook, Enabled: true,
		Config: map[string]any{"url": srv.URL},
	}))

	svc := NewService(s, s, s, DefaultConfig())
	_, err := svc.SendNotification(ctx, models.SendNotificationRequest{
		IncidentID: "i1",
		ChannelID:  "c1",
		Alert:      models.AlertPayload{Title: "t"},
	})
	require.NoError(t, err)

	attempts, err := s.ListByIncident(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, models.DeliveryRetrying, attempts[0].Status)
	assert.NotNil(t, attempts[0].NextRetryAt)
}

func TestServiceRaiseIncidentFansOutToChannels(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateChannel(ctx, &models.NotificationChannel{
		ChannelID: "c1", Type: models.ChannelWebhook, Enabled: true,
		Config: map[string]any{"url": srv.URL},
	}))

	svc := NewService(s, s, s, DefaultConfig())
	svc.Start(context.Background())
	defer svc.Stop()

	rule := &models.AlertRule{RuleID: "r1", Name: "rule", Severity: models.SeverityHigh, ChannelIDs: []string{"c1"}}
	require.NoError(t, svc.RaiseIncident(ctx, rule, nil))

	incidents, err := s.ListIncidents(ctx, models.IncidentFilters{RuleID: "r1"})
	require.NoError(t, err)
	require.Len(t, incidents, 1)

	require.Eventually(t, func() bool { return hits == 1 }, time.Second, 10*time.Millisecond)
}

func TestServiceTestChannelUpdatesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.CreateChannel(ctx, &models.NotificationChannel{
		ChannelID: "c1", Type: models.ChannelWebhook, Enabled: true,
		Config: map[string]any{"url": srv.URL},
	}))

	svc := NewService(s, s, s, DefaultConfig())
	result, err := svc.TestChannel(ctx, "c1", models.AlertPayload{Title: "probe"})
	require.NoError(t, err)
	assert.True(t, result.Success)

	channel, err := s.GetChannel(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", channel.TestStatus)
	assert.NotNil(t, channel.LastTestedAt)
}

package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/pkg/models"
)

func TestRuleLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	rule := &models.AlertRule{RuleID: "r1", Name: "high value transfer", Type: models.RuleTypeThreshold, Enabled: true}
	require.NoError(t, s.CreateRule(ctx, rule))
	assert.ErrorIs(t, s.CreateRule(ctx, rule), errs.ErrAlreadyExists)

	got, err := s.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "high value transfer", got.Name)

	require.NoError(t, s.MarkTriggered(ctx, "r1", time.Unix(100, 0)))
	got, _ = s.GetRule(ctx, "r1")
	require.NotNil(t, got.LastTriggeredAt)

	list, err := s.ListRules(ctx, models.RuleFilters{EnabledOnly: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteRule(ctx, "r1"))
	_, err = s.GetRule(ctx, "r1")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestIncidentFilters(t *testing.T) {
	s := New()
	ctx := context.Background()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()
	require.NoError(t, s.CreateIncident(ctx, &models.AlertIncident{IncidentID: "i1", RuleID: "r1", Status: models.IncidentActive, TriggeredAt: older}))
	require.NoError(t, s.CreateIncident(ctx, &models.AlertIncident{IncidentID: "i2", RuleID: "r2", Status: models.IncidentResolved, TriggeredAt: newer}))

	list, err := s.ListIncidents(ctx, models.IncidentFilters{Status: models.IncidentActive})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "i1", list[0].IncidentID)

	all, err := s.ListIncidents(ctx, models.IncidentFilters{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "i2", all[0].IncidentID, "most recent first")
}

func TestClaimDueRetries(t *testing.T) {
	s := New()
	ctx := context.Background()
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Minute)

	require.NoError(t, s.CreateAttempt(ctx, &models.NotificationAttempt{NotificationID: "n1", Status: models.DeliveryRetrying, NextRetryAt: &past}))
	require.NoError(t, s.CreateAttempt(ctx, &models.NotificationAttempt{NotificationID: "n2", Status: models.DeliveryRetrying, NextRetryAt: &future}))
	require.NoError(t, s.CreateAttempt(ctx, &models.NotificationAttempt{NotificationID: "n3", Status: models.DeliverySent}))

	due, err := s.ClaimDueRetries(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "n1", due[0].NotificationID)
}

func TestScanJobClaim(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateScanJob(ctx, &models.ScanJob{JobID: "j1", Status: models.ScanQueued, Priority: 1, CreatedAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, s.CreateScanJob(ctx, &models.ScanJob{JobID: "j2", Status: models.ScanQueued, Priority: 5, CreatedAt: time.Now()}))

	claimed, err := s.ClaimNextJob(ctx, "worker-1")
	require.NoError(t, err)
	assert.Equal(t, "j2", claimed.JobID, "highest priority claimed first")
	assert.Equal(t, models.ScanProcessing, claimed.Status)

	_, err = s.ClaimNextJob(ctx, "worker-1")
	require.NoError(t, err)

	_, err = s.ClaimNextJob(ctx, "worker-1")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestReclaimOrphans(t *testing.T) {
	s := New()
	ctx := context.Background()

	staleClaim := time.Now().Add(-time.Hour)
	job := &models.ScanJob{JobID: "j1", Status: models.ScanProcessing, ClaimedAt: &staleClaim, CreatedAt: time.Now()}
	require.NoError(t, s.CreateScanJob(ctx, job))

	n, err := s.ReclaimOrphans(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := s.GetScanJob(ctx, "j1")
	assert.Equal(t, models.ScanQueued, got.Status)
	assert.Nil(t, got.ClaimedAt)
}

func TestActivityQueryFilter(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.AppendEvent(ctx, &models.AgentActivityEvent{EventID: "e1", AgentID: "agent-a", ActivityType: "decision", Severity: models.SeverityLow, Title: "reviewed case 42", Timestamp: time.Now()}))
	require.NoError(t, s.AppendEvent(ctx, &models.AgentActivityEvent{EventID: "e2", AgentID: "agent-b", ActivityType: "escalation", Severity: models.SeverityHigh, Title: "escalated to supervisor", Timestamp: time.Now()}))

	out, err := s.QueryEvents(ctx, models.ActivityFilter{AgentIDs: []string{"agent-a"}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e1", out[0].EventID)

	out, err = s.QueryEvents(ctx, models.ActivityFilter{TextContains: "supervisor"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "e2", out[0].EventID)
}

// Package store defines the repository interfaces every subsystem
// persists through. internal/store/postgres implements them over
// pgx/v5 with transactional FOR UPDATE SKIP LOCKED claims;
// internal/store/memstore implements them in-memory for fast tests.
package store

import (
	"context"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// RuleStore persists AlertRules.
type RuleStore interface {
	CreateRule(ctx context.Context, rule *models.AlertRule) error
	GetRule(ctx context.Context, ruleID string) (*models.AlertRule, error)
	ListRules(ctx context.Context, filters models.RuleFilters) ([]*models.AlertRule, error)
	UpdateRule(ctx context.Context, rule *models.AlertRule) error
	DeleteRule(ctx context.Context, ruleID string) error
	// MarkTriggered stamps a rule's last_triggered_at, used to enforce cooldown.
	MarkTriggered(ctx context.Context, ruleID string, at time.Time) error
}

// IncidentStore persists AlertIncidents.
type IncidentStore interface {
	CreateIncident(ctx context.Context, incident *models.AlertIncident) error
	GetIncident(ctx context.Context, incidentID string) (*models.AlertIncident, error)
	ListIncidents(ctx context.Context, filters models.IncidentFilters) ([]*models.AlertIncident, error)
	UpdateIncident(ctx context.Context, incident *models.AlertIncident) error
}

// ChannelStore persists NotificationChannels.
type ChannelStore interface {
	CreateChannel(ctx context.Context, channel *models.NotificationChannel) error
	GetChannel(ctx context.Context, channelID string) (*models.NotificationChannel, error)
	ListChannels(ctx context.Context) ([]*models.NotificationChannel, error)
	UpdateChannel(ctx context.Context, channel *models.NotificationChannel) error
	DeleteChannel(ctx context.Context, channelID string) error
}

// NotificationStore persists NotificationAttempts and drives the retry scan.
type NotificationStore interface {
	CreateAttempt(ctx context.Context, attempt *models.NotificationAttempt) error
	UpdateAttempt(ctx context.Context, attempt *models.NotificationAttempt) error
	// ClaimDueRetries atomically claims up to limit attempts whose
	// next_retry_at has passed, using FOR UPDATE SKIP LOCKED so
	// multiple notification workers never double-send.
	ClaimDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.NotificationAttempt, error)
	ListByIncident(ctx context.Context, incidentID string) ([]*models.NotificationAttempt, error)
}

// RegulatoryStore persists Subscriptions and dedup state for the event subscriber.
type RegulatoryStore interface {
	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, agentID string) (*models.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]*models.Subscription, error)
	DeleteSubscription(ctx context.Context, agentID string) error
}

// ActivityStore persists AgentActivityEvents for durable export/query,
// independent of the in-memory ring feed.
type ActivityStore interface {
	AppendEvent(ctx context.Context, event *models.AgentActivityEvent) error
	QueryEvents(ctx context.Context, filter models.ActivityFilter) ([]*models.AgentActivityEvent, error)
}

// ScanStore persists ScanJobs, FraudRules, and FraudAlerts.
type ScanStore interface {
	CreateScanJob(ctx context.Context, job *models.ScanJob) error
	GetScanJob(ctx context.Context, jobID string) (*models.ScanJob, error)
	ListScanJobs(ctx context.Context, filters models.ScanFilters) ([]*models.ScanJob, error)
	UpdateScanJob(ctx context.Context, job *models.ScanJob) error
	// ClaimNextJob atomically claims the highest-priority queued job
	// (oldest first among equal priorities) using FOR UPDATE SKIP
	// LOCKED, mirroring pkg/queue's session claim.
	ClaimNextJob(ctx context.Context, workerID string) (*models.ScanJob, error)
	// ReclaimOrphans resets jobs stuck in processing past staleAfter
	// back to queued, returning how many were reclaimed.
	ReclaimOrphans(ctx context.Context, staleAfter time.Duration) (int, error)

	ListFraudRules(ctx context.Context, enabledOnly bool) ([]*models.FraudRule, error)
	CreateFraudAlert(ctx context.Context, alert *models.FraudAlert) error
	MarkFraudRuleTriggered(ctx context.Context, ruleID string, at time.Time) error
}

// MetricSample is one recorded observation of a named metric, the
// unit the Rule Evaluation Engine's threshold/pattern/anomaly
// evaluators read from — grounded on the original engine's
// metric_history table.
type MetricSample struct {
	MetricName string
	Value      float64
	Data       map[string]any
	CreatedAt  time.Time
}

// MetricBaseline is the trailing-window mean/std_dev used by the
// anomaly evaluator.
type MetricBaseline struct {
	Mean   float64
	StdDev float64
}

// MetricProvider is how pkg/rules collects live metric data and
// baselines, decoupled from any specific storage engine.
type MetricProvider interface {
	// RecordMetric appends one sample (used by instrumented
	// callers feeding live data into the engine).
	RecordMetric(ctx context.Context, metricName string, value float64, data map[string]any) error
	// LatestSample returns the most recent sample for metricName.
	LatestSample(ctx context.Context, metricName string) (*MetricSample, error)
	// Baseline returns the trailing 24h mean/std_dev for metricName.
	Baseline(ctx context.Context, metricName string) (*MetricBaseline, error)
}

// CollabStore persists CollaborationSessions whenever one is passed to
// collab.NewManager (cmd/alertd always passes the postgres store); the
// in-memory manager is always authoritative for live state.
type CollabStore interface {
	SaveSession(ctx context.Context, session *models.CollaborationSession) error
	LoadSessions(ctx context.Context) ([]*models.CollaborationSession, error)
}

// Package memstore is an in-memory implementation of every
// internal/store interface, used for fast unit tests (cmd/alertd
// always opens internal/store/postgres and does not use it). It holds
// no relationship to internal/store/postgres beyond sharing the same
// interfaces — callers must not assume both see the same data.
package memstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// Store is the in-memory backing for every repository interface in
// internal/store. All maps are guarded by a single mutex; this trades
// fine-grained concurrency for simplicity, acceptable since memstore
// exists for tests and small deployments, not production scale.
type Store struct {
	mu sync.RWMutex

	rules         map[string]*models.AlertRule
	incidents     map[string]*models.AlertIncident
	channels      map[string]*models.NotificationChannel
	attempts      map[string]*models.NotificationAttempt
	subscriptions map[string]*models.Subscription
	activity      []*models.AgentActivityEvent
	scanJobs      map[string]*models.ScanJob
	fraudRules    map[string]*models.FraudRule
	fraudAlerts   map[string]*models.FraudAlert
	collabSess    map[string]*models.CollaborationSession
	metrics       map[string][]store.MetricSample
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		rules:         make(map[string]*models.AlertRule),
		incidents:     make(map[string]*models.AlertIncident),
		channels:      make(map[string]*models.NotificationChannel),
		attempts:      make(map[string]*models.NotificationAttempt),
		subscriptions: make(map[string]*models.Subscription),
		scanJobs:      make(map[string]*models.ScanJob),
		fraudRules:    make(map[string]*models.FraudRule),
		fraudAlerts:   make(map[string]*models.FraudAlert),
		collabSess:    make(map[string]*models.CollaborationSession),
		metrics:       make(map[string][]store.MetricSample),
	}
}

// --- MetricProvider ---

func (s *Store) RecordMetric(ctx context.Context, metricName string, value float64, data map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics[metricName] = append(s.metrics[metricName], store.MetricSample{
		MetricName: metricName,
		Value:      value,
		Data:       data,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *Store) LatestSample(ctx context.Context, metricName string) (*store.MetricSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	samples := s.metrics[metricName]
	if len(samples) == 0 {
		return nil, errs.ErrNotFound
	}
	latest := samples[len(samples)-1]
	return &latest, nil
}

// Baseline computes mean/std_dev over samples recorded in the last 24h.
func (s *Store) Baseline(ctx context.Context, metricName string) (*store.MetricBaseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := time.Now().Add(-24 * time.Hour)
	var values []float64
	for _, sample := range s.metrics[metricName] {
		if sample.CreatedAt.After(cutoff) {
			values = append(values, sample.Value)
		}
	}
	if len(values) == 0 {
		return nil, errs.ErrNotFound
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return &store.MetricBaseline{Mean: mean, StdDev: math.Sqrt(variance)}, nil
}

// --- RuleStore ---

func (s *Store) CreateRule(ctx context.Context, rule *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.RuleID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *rule
	s.rules[rule.RuleID] = &cp
	return nil
}

func (s *Store) GetRule(ctx context.Context, ruleID string) (*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[ruleID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRules(ctx context.Context, filters models.RuleFilters) ([]*models.AlertRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AlertRule, 0, len(s.rules))
	for _, r := range s.rules {
		if filters.EnabledOnly && !r.Enabled {
			continue
		}
		if filters.Type != "" && r.Type != filters.Type {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID < out[j].RuleID })
	return out, nil
}

func (s *Store) UpdateRule(ctx context.Context, rule *models.AlertRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[rule.RuleID]; !ok {
		return errs.ErrNotFound
	}
	cp := *rule
	s.rules[rule.RuleID] = &cp
	return nil
}

func (s *Store) DeleteRule(ctx context.Context, ruleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[ruleID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.rules, ruleID)
	return nil
}

func (s *Store) MarkTriggered(ctx context.Context, ruleID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rules[ruleID]
	if !ok {
		return errs.ErrNotFound
	}
	t := at
	r.LastTriggeredAt = &t
	return nil
}

// --- IncidentStore ---

func (s *Store) CreateIncident(ctx context.Context, incident *models.AlertIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incident.IncidentID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *incident
	s.incidents[incident.IncidentID] = &cp
	return nil
}

func (s *Store) GetIncident(ctx context.Context, incidentID string) (*models.AlertIncident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incidents[incidentID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (s *Store) ListIncidents(ctx context.Context, filters models.IncidentFilters) ([]*models.AlertIncident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AlertIncident, 0, len(s.incidents))
	for _, i := range s.incidents {
		if filters.RuleID != "" && i.RuleID != filters.RuleID {
			continue
		}
		if filters.Status != "" && i.Status != filters.Status {
			continue
		}
		cp := *i
		out = append(out, &cp)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].TriggeredAt.After(out[b].TriggeredAt) })
	if filters.Offset > 0 && filters.Offset < len(out) {
		out = out[filters.Offset:]
	} else if filters.Offset >= len(out) {
		out = nil
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, nil
}

func (s *Store) UpdateIncident(ctx context.Context, incident *models.AlertIncident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.incidents[incident.IncidentID]; !ok {
		return errs.ErrNotFound
	}
	cp := *incident
	s.incidents[incident.IncidentID] = &cp
	return nil
}

// --- ChannelStore ---

func (s *Store) CreateChannel(ctx context.Context, channel *models.NotificationChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel.ChannelID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *channel
	s.channels[channel.ChannelID] = &cp
	return nil
}

func (s *Store) GetChannel(ctx context.Context, channelID string) (*models.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.channels[channelID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListChannels(ctx context.Context) ([]*models.NotificationChannel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.NotificationChannel, 0, len(s.channels))
	for _, c := range s.channels {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (s *Store) UpdateChannel(ctx context.Context, channel *models.NotificationChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channel.ChannelID]; !ok {
		return errs.ErrNotFound
	}
	cp := *channel
	s.channels[channel.ChannelID] = &cp
	return nil
}

func (s *Store) DeleteChannel(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.channels[channelID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.channels, channelID)
	return nil
}

// --- NotificationStore ---

func (s *Store) CreateAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.NotificationID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *attempt
	s.attempts[attempt.NotificationID] = &cp
	return nil
}

func (s *Store) UpdateAttempt(ctx context.Context, attempt *models.NotificationAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[attempt.NotificationID]; !ok {
		return errs.ErrNotFound
	}
	cp := *attempt
	s.attempts[attempt.NotificationID] = &cp
	return nil
}

// ClaimDueRetries returns copies of the due retrying rows, oldest
// NextRetryAt first, without changing their stored status — memstore has
// no concurrent claimants in another process, and the single store mutex
// serializes callers within this one.
func (s *Store) ClaimDueRetries(ctx context.Context, now time.Time, limit int) ([]*models.NotificationAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*models.NotificationAttempt
	for _, a := range s.attempts {
		if a.Status != models.DeliveryRetrying {
			continue
		}
		if a.NextRetryAt == nil || a.NextRetryAt.After(now) {
			continue
		}
		due = append(due, a)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(*due[j].NextRetryAt) })
	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}
	out := make([]*models.NotificationAttempt, len(due))
	for i, a := range due {
		cp := *a
		out[i] = &cp
	}
	return out, nil
}

func (s *Store) ListByIncident(ctx context.Context, incidentID string) ([]*models.NotificationAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.NotificationAttempt, 0)
	for _, a := range s.attempts {
		if a.IncidentID == incidentID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- RegulatoryStore ---

func (s *Store) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subscriptions[sub.AgentID] = &cp
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, agentID string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[agentID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *Store) ListSubscriptions(ctx context.Context) ([]*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		cp := *sub
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out, nil
}

func (s *Store) DeleteSubscription(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscriptions[agentID]; !ok {
		return errs.ErrNotFound
	}
	delete(s.subscriptions, agentID)
	return nil
}

// --- ActivityStore ---

func (s *Store) AppendEvent(ctx context.Context, event *models.AgentActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.activity = append(s.activity, &cp)
	return nil
}

func (s *Store) QueryEvents(ctx context.Context, filter models.ActivityFilter) ([]*models.AgentActivityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.AgentActivityEvent, 0)
	for _, e := range s.activity {
		if !matchesActivity(e, filter) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	if filter.MaxResults > 0 && filter.MaxResults < len(out) {
		out = out[len(out)-filter.MaxResults:]
	}
	return out, nil
}

func matchesActivity(e *models.AgentActivityEvent, f models.ActivityFilter) bool {
	if len(f.AgentIDs) > 0 && !containsStr(f.AgentIDs, e.AgentID) {
		return false
	}
	if len(f.ActivityTypes) > 0 && !containsStr(f.ActivityTypes, e.ActivityType) {
		return false
	}
	if len(f.Severities) > 0 {
		match := false
		for _, sv := range f.Severities {
			if sv == e.Severity {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.Timestamp.After(*f.Until) {
		return false
	}
	if f.TextContains != "" &&
		!strings.Contains(strings.ToLower(e.Title), strings.ToLower(f.TextContains)) &&
		!strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.TextContains)) {
		return false
	}
	return true
}

func containsStr(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// --- ScanStore ---

func (s *Store) CreateScanJob(ctx context.Context, job *models.ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scanJobs[job.JobID]; ok {
		return errs.ErrAlreadyExists
	}
	cp := *job
	s.scanJobs[job.JobID] = &cp
	return nil
}

func (s *Store) GetScanJob(ctx context.Context, jobID string) (*models.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.scanJobs[jobID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *Store) ListScanJobs(ctx context.Context, filters models.ScanFilters) ([]*models.ScanJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ScanJob, 0, len(s.scanJobs))
	for _, j := range s.scanJobs {
		if filters.Status != "" && string(j.Status) != filters.Status {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateScanJob(ctx context.Context, job *models.ScanJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.scanJobs[job.JobID]; !ok {
		return errs.ErrNotFound
	}
	cp := *job
	s.scanJobs[job.JobID] = &cp
	return nil
}

// ClaimNextJob claims the oldest queued job, highest priority first.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string) (*models.ScanJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *models.ScanJob
	for _, j := range s.scanJobs {
		if j.Status != models.ScanQueued {
			continue
		}
		if best == nil ||
			j.Priority > best.Priority ||
			(j.Priority == best.Priority && j.CreatedAt.Before(best.CreatedAt)) {
			best = j
		}
	}
	if best == nil {
		return nil, errs.ErrNotFound
	}
	now := time.Now()
	best.Status = models.ScanProcessing
	best.WorkerID = workerID
	best.ClaimedAt = &now
	best.StartedAt = &now
	cp := *best
	return &cp, nil
}

// ReclaimOrphans resets jobs claimed more than staleAfter ago back to queued.
func (s *Store) ReclaimOrphans(ctx context.Context, staleAfter time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-staleAfter)
	count := 0
	for _, j := range s.scanJobs {
		if j.Status != models.ScanProcessing || j.ClaimedAt == nil {
			continue
		}
		if j.ClaimedAt.Before(cutoff) {
			j.Status = models.ScanQueued
			j.WorkerID = ""
			j.ClaimedAt = nil
			j.StartedAt = nil
			count++
		}
	}
	return count, nil
}

func (s *Store) ListFraudRules(ctx context.Context, enabledOnly bool) ([]*models.FraudRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.FraudRule, 0, len(s.fraudRules))
	for _, r := range s.fraudRules {
		if enabledOnly && !r.Enabled {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (s *Store) CreateFraudAlert(ctx context.Context, alert *models.FraudAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.fraudAlerts[alert.AlertID] = &cp
	return nil
}

func (s *Store) MarkFraudRuleTriggered(ctx context.Context, ruleID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.fraudRules[ruleID]
	if !ok {
		return errs.ErrNotFound
	}
	t := at
	r.LastTriggeredAt = &t
	r.AlertCount++
	return nil
}

// SeedFraudRule is a test/bootstrap helper, not part of the ScanStore
// interface: fraud rules have no create_rule API in the spec, only
// administrative seeding.
func (s *Store) SeedFraudRule(rule *models.FraudRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rule
	s.fraudRules[rule.RuleID] = &cp
}

// --- CollabStore ---

func (s *Store) SaveSession(ctx context.Context, session *models.CollaborationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *session
	s.collabSess[session.SessionID] = &cp
	return nil
}

func (s *Store) LoadSessions(ctx context.Context) ([]*models.CollaborationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.CollaborationSession, 0, len(s.collabSess))
	for _, sess := range s.collabSess {
		cp := *sess
		out = append(out, &cp)
	}
	return out, nil
}

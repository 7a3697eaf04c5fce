package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/regulens/alertfabric/internal/errs"
	"github.com/regulens/alertfabric/internal/store"
	"github.com/regulens/alertfabric/pkg/models"
)

// IncidentEvent is fanned out to internal/feedstream's incident
// channel whenever an incident is created or changes lifecycle state.
type IncidentEvent struct {
	Type     string               `json:"type"` // "created", "acknowledged", "resolved"
	Incident models.AlertIncident `json:"incident"`
}

// IncidentSubscriber receives IncidentEvents synchronously, the same
// invocation shape as pkg/activity's SubscriptionCallback.
type IncidentSubscriber func(ctx context.Context, event IncidentEvent)

// Service is the Notification Service: a bounded worker pool draining
// a request queue, plus a dedicated retry-scanner goroutine, shaped
// after pkg/queue's WorkerPool/Worker split.
type Service struct {
	channels      store.ChannelStore
	attempts      store.NotificationStore
	incidents     store.IncidentStore
	cfg           Config
	dispatchers   map[models.ChannelType]Dispatcher

	queue    chan Request
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool

	metrics *metricsTracker

	subMu sync.RWMutex
	subs  map[string]IncidentSubscriber
}

// NewService wires a Service against its stores and a default adapter
// set (email/webhook/slack/sms/pagerduty).
func NewService(channels store.ChannelStore, attempts store.NotificationStore, incidents store.IncidentStore, cfg Config) *Service {
	return &Service{
		channels:  channels,
		attempts:  attempts,
		incidents: incidents,
		cfg:       cfg,
		dispatchers: map[models.ChannelType]Dispatcher{
			models.ChannelEmail:     newEmailDispatcher(cfg),
			models.ChannelWebhook:   newWebhookDispatcher(cfg.HTTPTimeout),
			models.ChannelSlack:     newSlackDispatcher(),
			models.ChannelSMS:       newSMSDispatcher(cfg.HTTPTimeout),
			models.ChannelPagerDuty: newPagerDutyDispatcher(cfg.HTTPTimeout),
		},
		queue:  make(chan Request, cfg.QueueCapacity),
		stopCh: make(chan struct{}),
		metrics: newMetricsTracker(),
		subs:    make(map[string]IncidentSubscriber),
	}
}

// Subscribe registers cb for every incident lifecycle event, returning
// an id for Unsubscribe. Used by internal/feedstream to bridge incident
// changes onto its WebSocket "incidents" channel.
func (s *Service) Subscribe(cb IncidentSubscriber) string {
	subID := uuid.NewString()
	s.subMu.Lock()
	s.subs[subID] = cb
	s.subMu.Unlock()
	return subID
}

// Unsubscribe removes a previously registered incident subscriber.
func (s *Service) Unsubscribe(subID string) {
	s.subMu.Lock()
	delete(s.subs, subID)
	s.subMu.Unlock()
}

func (s *Service) publishIncidentEvent(ctx context.Context, eventType string, incident models.AlertIncident) {
	s.subMu.RLock()
	cbs := make([]IncidentSubscriber, 0, len(s.subs))
	for _, cb := range s.subs {
		cbs = append(cbs, cb)
	}
	s.subMu.RUnlock()

	evt := IncidentEvent{Type: eventType, Incident: incident}
	for _, cb := range cbs {
		cb(ctx, evt)
	}
}

// Start spawns the worker pool and the retry scanner. Safe to call once.
func (s *Service) Start(ctx context.Context) {
	if s.started {
		slog.Warn("notification service already started, ignoring duplicate Start call")
		return
	}
	s.started = true

	for i := 0; i < s.cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.runWorker(ctx, i)
	}

	s.wg.Add(1)
	go s.runRetryScanner(ctx)

	slog.Info("notification service started", "workers", s.cfg.WorkerCount)
}

// Stop signals all workers and the retry scanner to stop, draining the
// queue gracefully.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Metrics returns a snapshot of the service's counters.
func (s *Service) Metrics() Metrics {
	return s.metrics.snapshot()
}

// SendNotification dispatches synchronously and returns the new
// notification id once the attempt has been persisted.
func (s *Service) SendNotification(ctx context.Context, req models.SendNotificationRequest) (string, error) {
	channel, err := s.channels.GetChannel(ctx, req.ChannelID)
	if err != nil {
		return "", fmt.Errorf("loading channel %s: %w", req.ChannelID, err)
	}

	notificationID := uuid.NewString()
	attempt := &models.NotificationAttempt{
		NotificationID: notificationID,
		IncidentID:     req.IncidentID,
		ChannelID:      req.ChannelID,
		Status:         models.DeliveryPending,
		CreatedAt:      time.Now(),
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return "", fmt.Errorf("persisting attempt: %w", err)
	}

	s.deliver(ctx, Request{
		NotificationID: notificationID,
		IncidentID:     req.IncidentID,
		Channel:        channel,
		Alert:          req.Alert,
	}, attempt)

	return notificationID, nil
}

// SendNotificationAsync enqueues the request and returns immediately.
func (s *Service) SendNotificationAsync(ctx context.Context, req models.SendNotificationRequest) (string, error) {
	channel, err := s.channels.GetChannel(ctx, req.ChannelID)
	if err != nil {
		return "", fmt.Errorf("loading channel %s: %w", req.ChannelID, err)
	}

	notificationID := uuid.NewString()
	attempt := &models.NotificationAttempt{
		NotificationID: notificationID,
		IncidentID:     req.IncidentID,
		ChannelID:      req.ChannelID,
		Status:         models.DeliveryPending,
		CreatedAt:      time.Now(),
	}
	if err := s.attempts.CreateAttempt(ctx, attempt); err != nil {
		return "", fmt.Errorf("persisting attempt: %w", err)
	}

	s.enqueue(Request{
		NotificationID: notificationID,
		IncidentID:     req.IncidentID,
		Channel:        channel,
		Alert:          req.Alert,
	})
	return notificationID, nil
}

// SendNotificationsBatch enqueues every request in the batch.
func (s *Service) SendNotificationsBatch(ctx context.Context, reqs []models.SendNotificationRequest) error {
	for _, r := range reqs {
		if _, err := s.SendNotificationAsync(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// TestChannel synchronously probes a channel and stamps last_tested_at.
func (s *Service) TestChannel(ctx context.Context, channelID string, alert models.AlertPayload) (*models.TestChannelResult, error) {
	channel, err := s.channels.GetChannel(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("loading channel %s: %w", channelID, err)
	}

	dispatcher, ok := s.dispatchers[channel.Type]
	if !ok {
		return nil, fmt.Errorf("no dispatcher registered for channel type %q", channel.Type)
	}

	now := time.Now()
	result := &models.TestChannelResult{ChannelID: channelID, TestedAt: now}

	err = dispatcher.Dispatch(ctx, Request{
		NotificationID: "test-" + uuid.NewString(),
		IncidentID:     "",
		Channel:        channel,
		Alert:          alert,
	})
	if err != nil {
		result.Success = false
		result.Detail = err.Error()
		channel.TestStatus = "failed"
	} else {
		result.Success = true
		channel.TestStatus = "succeeded"
	}
	channel.LastTestedAt = &now
	if updErr := s.channels.UpdateChannel(ctx, channel); updErr != nil {
		slog.Error("failed to persist channel test status", "channel_id", channelID, "error", updErr)
	}
	return result, nil
}

// RaiseIncident implements rules.IncidentRaiser: it creates the
// incident record for a fired rule and fans out notifications to the
// rule's configured channels.
func (s *Service) RaiseIncident(ctx context.Context, rule *models.AlertRule, data map[string]any) error {
	incident := &models.AlertIncident{
		IncidentID:  uuid.NewString(),
		RuleID:      rule.RuleID,
		Severity:    rule.Severity,
		Title:       fmt.Sprintf("%s triggered", rule.Name),
		Message:     fmt.Sprintf("Rule %q fired its %s condition", rule.Name, rule.Type),
		Data:        data,
		Status:      models.IncidentActive,
		TriggeredAt: time.Now(),
	}
	if err := s.incidents.CreateIncident(ctx, incident); err != nil {
		return fmt.Errorf("creating incident: %w", err)
	}
	s.publishIncidentEvent(ctx, "created", *incident)

	alert := models.AlertPayload{
		RuleName: rule.Name,
		Severity: rule.Severity,
		Title:    incident.Title,
		Message:  incident.Message,
		Data:     data,
	}

	for _, channelID := range rule.ChannelIDs {
		if _, err := s.SendNotificationAsync(ctx, models.SendNotificationRequest{
			IncidentID: incident.IncidentID,
			ChannelID:  channelID,
			Alert:      alert,
		}); err != nil {
			slog.Error("failed to enqueue notification", "incident_id", incident.IncidentID, "channel_id", channelID, "error", err)
		}
	}
	return nil
}

// AcknowledgeIncident transitions an active incident to acknowledged,
// stamping who acknowledged it and when.
func (s *Service) AcknowledgeIncident(ctx context.Context, incidentID, ackBy string) (*models.AlertIncident, error) {
	incident, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("loading incident %s: %w", incidentID, err)
	}
	if !incident.CanAcknowledge() {
		return nil, fmt.Errorf("%w: incident %s is %s, not active", errs.ErrConflict, incidentID, incident.Status)
	}

	now := time.Now()
	incident.Status = models.IncidentAcknowledged
	incident.AckAt = &now
	incident.AckBy = ackBy

	if err := s.incidents.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("persisting acknowledgement: %w", err)
	}
	s.publishIncidentEvent(ctx, "acknowledged", *incident)
	return incident, nil
}

// ResolveIncident transitions an active or acknowledged incident to
// resolved, recording who resolved it and any closing notes.
func (s *Service) ResolveIncident(ctx context.Context, incidentID, resolvedBy, notes string) (*models.AlertIncident, error) {
	incident, err := s.incidents.GetIncident(ctx, incidentID)
	if err != nil {
		return nil, fmt.Errorf("loading incident %s: %w", incidentID, err)
	}
	if !incident.CanResolve() {
		return nil, fmt.Errorf("%w: incident %s is %s, cannot be resolved", errs.ErrConflict, incidentID, incident.Status)
	}

	now := time.Now()
	incident.Status = models.IncidentResolved
	incident.ResolvedAt = &now
	incident.ResolvedBy = resolvedBy
	incident.ResolutionNotes = notes

	if err := s.incidents.UpdateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("persisting resolution: %w", err)
	}
	s.publishIncidentEvent(ctx, "resolved", *incident)
	return incident, nil
}

func (s *Service) enqueue(req Request) {
	select {
	case s.queue <- req:
	default:
		slog.Error("notification queue full, dropping request", "notification_id", req.NotificationID)
	}
}

func (s *Service) runWorker(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			for {
				select {
				case req := <-s.queue:
					s.deliver(ctx, req, nil)
				default:
					return
				}
			}
		case <-ctx.Done():
			return
		case req := <-s.queue:
			s.deliver(ctx, req, nil)
		}
	}
}

// deliver dispatches req through the channel's adapter and persists
// the outcome. attempt is reused if the caller already created it
// (synchronous path); otherwise it is loaded from the store.
func (s *Service) deliver(ctx context.Context, req Request, attempt *models.NotificationAttempt) {
	dispatcher, ok := s.dispatchers[req.Channel.Type]
	if !ok {
		slog.Error("no dispatcher registered for channel type", "type", req.Channel.Type)
		return
	}

	s.metrics.recordSent(req.Channel.Type)
	start := time.Now()
	err := dispatcher.Dispatch(ctx, req)
	elapsed := time.Since(start)
	s.metrics.recordOutcome(err == nil, elapsed)

	if attempt == nil {
		attempt = &models.NotificationAttempt{
			NotificationID: req.NotificationID,
			IncidentID:     req.IncidentID,
			ChannelID:      req.Channel.ChannelID,
		}
	}

	now := time.Now()
	if err != nil {
		attempt.Error = err.Error()
		if attempt.RetryCount >= s.cfg.MaxRetries {
			attempt.Status = models.DeliveryFailed
		} else {
			attempt.Status = models.DeliveryRetrying
			next := now.Add(nextRetryDelay(s.cfg.BaseRetryDelay, attempt.RetryCount))
			attempt.NextRetryAt = &next
		}
	} else {
		attempt.Status = models.DeliveryDelivered
		attempt.Error = ""
		attempt.SentAt = &now
	}

	if updErr := s.attempts.UpdateAttempt(ctx, attempt); updErr != nil {
		slog.Error("failed to persist delivery outcome", "notification_id", attempt.NotificationID, "error", updErr)
	}
}

func (s *Service) runRetryScanner(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.scanRetries(ctx)
		}
	}
}

func (s *Service) scanRetries(ctx context.Context) {
	due, err := s.attempts.ClaimDueRetries(ctx, time.Now(), s.cfg.RetryBatchLimit)
	if err != nil {
		slog.Error("failed to claim due retries", "error", err)
		return
	}

	for _, attempt := range due {
		attempt.RetryCount++
		s.metrics.recordRetry()

		channel, err := s.channels.GetChannel(ctx, attempt.ChannelID)
		if err != nil {
			slog.Error("failed to load channel for retry", "channel_id", attempt.ChannelID, "error", err)
			attempt.Status = models.DeliveryFailed
			attempt.Error = fmt.Sprintf("channel lookup failed: %v", err)
			if updErr := s.attempts.UpdateAttempt(ctx, attempt); updErr != nil {
				slog.Error("failed to persist retry failure", "notification_id", attempt.NotificationID, "error", updErr)
			}
			continue
		}

		alert := models.AlertPayload{Message: attempt.Error}
		if incident, err := s.incidents.GetIncident(ctx, attempt.IncidentID); err == nil {
			alert = models.AlertPayload{Severity: incident.Severity, Title: incident.Title, Message: incident.Message, Data: incident.Data}
		}

		s.deliver(ctx, Request{
			NotificationID: attempt.NotificationID,
			IncidentID:     attempt.IncidentID,
			Channel:        channel,
			Alert:          alert,
		}, attempt)
	}
}

package feedstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/models"
	"github.com/regulens/alertfabric/pkg/notify"
)

// ActivitySource is the subset of pkg/activity.Feed that feedstream
// bridges onto its "activity" channel. The callback parameter must be
// activity.SubscriptionCallback itself (not an equivalent func literal
// type) for *activity.Feed to satisfy this interface: Go's method-set
// matching requires identical parameter types, and a defined type is
// never identical to an unnamed type with the same underlying func shape.
type ActivitySource interface {
	Subscribe(clientID string, filter models.ActivityFilter, cb activity.SubscriptionCallback) string
	Unsubscribe(subID string)
	QueryActivities(filter models.ActivityFilter) []models.AgentActivityEvent
}

// IncidentPublisher is the subset of pkg/notify.Service that feedstream
// bridges onto its "incidents" channel.
type IncidentPublisher interface {
	Subscribe(cb notify.IncidentSubscriber) string
	Unsubscribe(subID string)
}

// IncidentLister serves catchup for newly-subscribed incident clients.
type IncidentLister interface {
	ListIncidents(ctx context.Context, filters models.IncidentFilters) ([]*models.AlertIncident, error)
}

// Bridge activates and deactivates the in-process source feeding a
// given WebSocket channel, and serves catchup snapshots for it.
type Bridge interface {
	// Activate starts forwarding events published on channel to emit,
	// returning a func that stops forwarding. Called once per channel,
	// the first time it gains a subscriber.
	Activate(channel string, emit func(payload []byte)) func()
	// Catchup returns a snapshot of recent events for a just-subscribed client.
	Catchup(ctx context.Context, channel string) ([][]byte, error)
}

const (
	incidentsChannel    = "incidents"
	activityChannel     = "activity"
	activityChannelScope = "activity:"
)

// sourceBridge is the concrete Bridge wiring the Activity Feed and the
// Notification Service's incident events onto feedstream channels.
type sourceBridge struct {
	activity  ActivitySource
	incidents IncidentPublisher
	lister    IncidentLister
}

// NewBridge constructs the default Bridge. incidents/lister may be nil
// if incident live-stream is not wired (e.g. in tests of the activity
// channel alone).
func NewBridge(activity ActivitySource, incidents IncidentPublisher, lister IncidentLister) Bridge {
	return &sourceBridge{activity: activity, incidents: incidents, lister: lister}
}

func (b *sourceBridge) Activate(channel string, emit func(payload []byte)) func() {
	if channel == incidentsChannel {
		if b.incidents == nil {
			return func() {}
		}
		subID := b.incidents.Subscribe(func(ctx context.Context, evt notify.IncidentEvent) {
			payload, err := json.Marshal(map[string]any{
				"type":     "incident." + evt.Type,
				"incident": evt.Incident,
			})
			if err != nil {
				return
			}
			emit(payload)
		})
		return func() { b.incidents.Unsubscribe(subID) }
	}

	agentID := activityAgentID(channel)
	filter := models.ActivityFilter{}
	if agentID != "" {
		filter.AgentIDs = []string{agentID}
	}
	subID := b.activity.Subscribe(channel, filter, func(ctx context.Context, event models.AgentActivityEvent) {
		payload, err := json.Marshal(map[string]any{
			"type":  "activity.event",
			"event": event,
		})
		if err != nil {
			return
		}
		emit(payload)
	})
	return func() { b.activity.Unsubscribe(subID) }
}

func (b *sourceBridge) Catchup(ctx context.Context, channel string) ([][]byte, error) {
	if channel == incidentsChannel {
		if b.lister == nil {
			return nil, nil
		}
		incidents, err := b.lister.ListIncidents(ctx, models.IncidentFilters{Status: models.IncidentActive})
		if err != nil {
			return nil, fmt.Errorf("listing incidents for catchup: %w", err)
		}
		out := make([][]byte, 0, len(incidents))
		for _, inc := range incidents {
			payload, err := json.Marshal(map[string]any{"type": "incident.active", "incident": inc})
			if err != nil {
				continue
			}
			out = append(out, payload)
		}
		return out, nil
	}

	agentID := activityAgentID(channel)
	filter := models.ActivityFilter{}
	if agentID != "" {
		filter.AgentIDs = []string{agentID}
	}
	events := b.activity.QueryActivities(filter)
	out := make([][]byte, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(map[string]any{"type": "activity.event", "event": e})
		if err != nil {
			continue
		}
		out = append(out, payload)
	}
	return out, nil
}

// activityAgentID returns the agent id scoped by an "activity:<agentID>"
// channel name, or "" for the unscoped "activity" channel or any other
// channel (including "incidents").
func activityAgentID(channel string) string {
	if channel == activityChannel {
		return ""
	}
	if strings.HasPrefix(channel, activityChannelScope) {
		return strings.TrimPrefix(channel, activityChannelScope)
	}
	return ""
}

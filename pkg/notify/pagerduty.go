package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// pagerDutyDispatcher posts an Events API v2 trigger event, routed by
// the channel's configured integration_key, per spec.md §4.2.
type pagerDutyDispatcher struct {
	client *http.Client
}

func newPagerDutyDispatcher(timeout time.Duration) *pagerDutyDispatcher {
	return &pagerDutyDispatcher{client: &http.Client{Timeout: timeout}}
}

type pagerDutyPayload struct {
	Summary       string `json:"summary"`
	Source        string `json:"source"`
	Severity      string `json:"severity"`
	CustomDetails any    `json:"custom_details,omitempty"`
}

type pagerDutyEvent struct {
	RoutingKey  string           `json:"routing_key"`
	EventAction string           `json:"event_action"`
	DedupKey    string           `json:"dedup_key,omitempty"`
	Payload     pagerDutyPayload `json:"payload"`
}

func pagerDutySeverity(sev string) string {
	switch sev {
	case "critical":
		return "critical"
	case "high":
		return "error"
	case "medium":
		return "warning"
	default:
		return "info"
	}
}

func (d *pagerDutyDispatcher) Dispatch(ctx context.Context, req Request) error {
	integrationKey, _ := req.Channel.Config["integration_key"].(string)
	if integrationKey == "" {
		return fmt.Errorf("pagerduty channel %s: missing config.integration_key", req.Channel.ChannelID)
	}

	event := pagerDutyEvent{
		RoutingKey:  integrationKey,
		EventAction: "trigger",
		DedupKey:    req.IncidentID,
		Payload: pagerDutyPayload{
			Summary:       req.Alert.Title,
			Source:        req.Alert.RuleName,
			Severity:      pagerDutySeverity(string(req.Alert.Severity)),
			CustomDetails: req.Alert.Data,
		},
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling pagerduty event: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, pagerDutyEventsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building pagerduty request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("pagerduty request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("pagerduty returned status %d", resp.StatusCode)
	}
	return nil
}

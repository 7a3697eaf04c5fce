package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/regulens/alertfabric/pkg/models"
)

// webhookDispatcher POSTs a JSON body to the channel's configured
// url. 2xx is success; any other status or transport error fails the
// attempt, per spec.md §4.2.
type webhookDispatcher struct {
	client *http.Client
}

func newWebhookDispatcher(timeout time.Duration) *webhookDispatcher {
	return &webhookDispatcher{client: &http.Client{Timeout: timeout}}
}

type webhookBody struct {
	Alert          models.AlertPayload `json:"alert"`
	IncidentID     string              `json:"incident_id"`
	NotificationID string              `json:"notification_id"`
	Timestamp      time.Time           `json:"timestamp"`
}

func (d *webhookDispatcher) Dispatch(ctx context.Context, req Request) error {
	url, _ := req.Channel.Config["url"].(string)
	if url == "" {
		return fmt.Errorf("webhook channel %s: missing config.url", req.Channel.ChannelID)
	}

	body, err := json.Marshal(webhookBody{
		Alert:          req.Alert,
		IncidentID:     req.IncidentID,
		NotificationID: req.NotificationID,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling webhook body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building webhook request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

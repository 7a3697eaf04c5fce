package regulatory

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/regulens/alertfabric/pkg/models"
)

// monitorClient fetches unseen changes from the upstream regulatory
// monitor's /changes endpoint.
type monitorClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func newMonitorClient(cfg Config) *monitorClient {
	limit := cfg.RateLimitPerSecond
	if limit <= 0 {
		limit = 2
	}
	return &monitorClient{
		baseURL: cfg.MonitorURL,
		client: &http.Client{
			Timeout: cfg.HTTPTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(limit), 1),
	}
}

// fetchChanges GETs /changes?since_id=<lastEventID> (omitted when
// empty) and parses the JSON array response. Redirects are followed
// per net/http's default client policy. The call blocks on the
// configured rate limiter so a tight backoff loop never floods the
// upstream monitor.
func (c *monitorClient) fetchChanges(ctx context.Context, sinceID string) ([]models.MonitorChange, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := c.baseURL + "/changes"
	if sinceID != "" {
		url += "?since_id=" + sinceID
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building monitor request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("monitor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("monitor returned status %d", resp.StatusCode)
	}

	var changes []models.MonitorChange
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return nil, fmt.Errorf("decoding monitor response: %w", err)
	}
	return changes, nil
}

// toEvent converts the upstream wire shape to the domain event,
// parsing the best-effort effective_date (RFC3339, else date-only).
func toEvent(c models.MonitorChange) models.RegulatoryEvent {
	event := models.RegulatoryEvent{
		EventID:    c.ChangeID,
		ChangeID:   c.ChangeID,
		SourceName: c.SourceName,
		Title:      c.RegulationTitle,
		Type:       c.ChangeType,
		Severity:   models.Severity(c.Severity),
		Payload: map[string]any{
			"change_description": c.ChangeDescription,
			"impact_assessment":  c.ImpactAssessment,
			"extracted_entities": c.ExtractedEntities,
		},
		ProcessedAt: time.Now(),
	}
	if t, err := time.Parse(time.RFC3339, c.EffectiveDate); err == nil {
		event.EffectiveDate = &t
	} else if t, err := time.Parse("2006-01-02", c.EffectiveDate); err == nil {
		event.EffectiveDate = &t
	}
	return event
}

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const smsMaxChars = 160

// smsDispatcher POSTs a carrier-specific payload with the message
// truncated to 160 characters, per spec.md §4.2.
type smsDispatcher struct {
	client *http.Client
}

func newSMSDispatcher(timeout time.Duration) *smsDispatcher {
	return &smsDispatcher{client: &http.Client{Timeout: timeout}}
}

type smsBody struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (d *smsDispatcher) Dispatch(ctx context.Context, req Request) error {
	url, _ := req.Channel.Config["url"].(string)
	to, _ := req.Channel.Config["to"].(string)
	if url == "" || to == "" {
		return fmt.Errorf("sms channel %s: missing config.url or config.to", req.Channel.ChannelID)
	}
	from, _ := req.Channel.Config["from"].(string)

	text := fmt.Sprintf("[%s] %s: %s", req.Alert.Severity, req.Alert.RuleName, req.Alert.Message)
	if len(text) > smsMaxChars {
		text = text[:smsMaxChars]
	}

	body, err := json.Marshal(smsBody{To: to, From: from, Message: text})
	if err != nil {
		return fmt.Errorf("marshaling sms body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building sms request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey, ok := req.Channel.Config["api_key"].(string); ok && apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("sms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider returned status %d", resp.StatusCode)
	}
	return nil
}

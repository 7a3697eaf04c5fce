package notify

import (
	"context"
	"fmt"

	goslack "github.com/slack-go/slack"

	"github.com/regulens/alertfabric/pkg/models"
)

// slackDispatcher posts an incoming-webhook message colored by
// severity. This is the alert/incident delivery path and is a
// distinct use case from a bot-token session-notification client: it
// never needs a Slack app token, only the channel's configured
// webhook_url, so it is built on slack-go/slack's webhook helpers
// rather than its chat.postMessage Web API client.
type slackDispatcher struct{}

func newSlackDispatcher() *slackDispatcher {
	return &slackDispatcher{}
}

func severityColor(sev models.Severity) string {
	switch sev {
	case models.SeverityCritical, models.SeverityHigh:
		return "danger"
	case models.SeverityMedium:
		return "warning"
	default:
		return "good"
	}
}

func (d *slackDispatcher) Dispatch(ctx context.Context, req Request) error {
	webhookURL, _ := req.Channel.Config["webhook_url"].(string)
	if webhookURL == "" {
		return fmt.Errorf("slack channel %s: missing config.webhook_url", req.Channel.ChannelID)
	}

	msg := &goslack.WebhookMessage{
		Text: req.Alert.Title,
		Attachments: []goslack.Attachment{
			{
				Color: severityColor(req.Alert.Severity),
				Text:  req.Alert.Message,
				Fields: []goslack.AttachmentField{
					{Title: "Rule", Value: req.Alert.RuleName, Short: true},
					{Title: "Severity", Value: string(req.Alert.Severity), Short: true},
					{Title: "Incident", Value: req.IncidentID, Short: true},
				},
			},
		},
	}

	if channel, ok := req.Channel.Config["channel"].(string); ok && channel != "" {
		msg.Channel = channel
	}
	if username, ok := req.Channel.Config["username"].(string); ok && username != "" {
		msg.Username = username
	}
	if icon, ok := req.Channel.Config["icon_emoji"].(string); ok && icon != "" {
		msg.IconEmoji = icon
	}

	if err := goslack.PostWebhookContext(ctx, webhookURL, msg); err != nil {
		return fmt.Errorf("slack webhook post failed: %w", err)
	}
	return nil
}

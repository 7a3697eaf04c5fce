package models

import "time"

// ChannelType identifies the notification delivery transport.
type ChannelType string

// Supported channel types.
const (
	ChannelEmail     ChannelType = "email"
	ChannelWebhook   ChannelType = "webhook"
	ChannelSlack     ChannelType = "slack"
	ChannelSMS       ChannelType = "sms"
	ChannelPagerDuty ChannelType = "pagerduty"
)

// NotificationChannel is a configured delivery target for incident alerts.
type NotificationChannel struct {
	ChannelID    string         `json:"channel_id"`
	Type         ChannelType    `json:"type"`
	Name         string         `json:"name"`
	Config       map[string]any `json:"config"`
	Enabled      bool           `json:"enabled"`
	LastTestedAt *time.Time     `json:"last_tested_at,omitempty"`
	TestStatus   string         `json:"test_status,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// CreateChannelRequest is the input for registering a new NotificationChannel.
type CreateChannelRequest struct {
	Type    ChannelType    `json:"type" validate:"required,oneof=email webhook slack sms pagerduty"`
	Name    string         `json:"name" validate:"required"`
	Config  map[string]any `json:"config"`
	Enabled bool           `json:"enabled"`
}

// TestChannelResult is returned by a synchronous channel probe.
type TestChannelResult struct {
	ChannelID string    `json:"channel_id"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
	TestedAt  time.Time `json:"tested_at"`
}

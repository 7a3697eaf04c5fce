// Package collab implements the Human–AI Collaboration Session
// Manager: session/request lifecycle with timeouts, role-based
// permission checks, and assistance-request mediation.
package collab

import "time"

// Config controls session caps and background cleanup cadence.
type Config struct {
	MaxSessionsPerUser    int           `yaml:"max_sessions_per_user"`
	MaxMessagesPerSession int           `yaml:"max_messages_per_session"`
	MaxPendingRequests    int           `yaml:"max_pending_requests"`
	SessionTimeout        time.Duration `yaml:"session_timeout"`
	CleanupInterval       time.Duration `yaml:"cleanup_interval"`
}

// DefaultConfig matches spec.md §4.6's design-level defaults.
func DefaultConfig() Config {
	return Config{
		MaxSessionsPerUser:    5,
		MaxMessagesPerSession: 500,
		MaxPendingRequests:    100,
		SessionTimeout:        30 * time.Minute,
		CleanupInterval:       time.Minute,
	}
}


package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags via go-playground/validator/v10, then
// runs the cross-field/domain checks struct tags can't express,
// failing fast on the first check that does not pass.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	if err := validateRuleEngine(cfg); err != nil {
		return fmt.Errorf("rule engine validation failed: %w", err)
	}
	if err := validateNotification(cfg); err != nil {
		return fmt.Errorf("notification validation failed: %w", err)
	}
	if err := validateSubscriber(cfg); err != nil {
		return fmt.Errorf("subscriber validation failed: %w", err)
	}
	if err := validateActivityFeed(cfg); err != nil {
		return fmt.Errorf("activity feed validation failed: %w", err)
	}
	if err := validateScanPool(cfg); err != nil {
		return fmt.Errorf("scan pool validation failed: %w", err)
	}
	if err := validateCollaboration(cfg); err != nil {
		return fmt.Errorf("collaboration validation failed: %w", err)
	}
	return nil
}

func validateRuleEngine(cfg *Config) error {
	if cfg.RuleEngine.EvaluationInterval <= 0 {
		return NewValidationError("rule_engine", "evaluation_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

func validateNotification(cfg *Config) error {
	n := cfg.Notification
	if n.WorkerCount < 1 || n.WorkerCount > 50 {
		return NewValidationError("notification", "worker_count", fmt.Errorf("must be between 1 and 50, got %d", n.WorkerCount))
	}
	if n.QueueCapacity < 1 {
		return NewValidationError("notification", "queue_capacity", fmt.Errorf("must be at least 1"))
	}
	if n.RetryInterval <= 0 {
		return NewValidationError("notification", "retry_interval", fmt.Errorf("must be positive"))
	}
	if n.MaxRetries < 0 {
		return NewValidationError("notification", "max_retries", fmt.Errorf("must be non-negative"))
	}
	if n.BaseRetryDelay <= 0 {
		return NewValidationError("notification", "base_retry_delay", fmt.Errorf("must be positive"))
	}
	return nil
}

func validateSubscriber(cfg *Config) error {
	s := cfg.Subscriber
	if s.PollInterval <= 0 {
		return NewValidationError("subscriber", "poll_interval", fmt.Errorf("must be positive"))
	}
	if s.MaxDedupEntries < 1 {
		return NewValidationError("subscriber", "max_dedup_entries", fmt.Errorf("must be at least 1"))
	}
	if s.RateLimitPerSecond <= 0 {
		return NewValidationError("subscriber", "rate_limit_per_second", fmt.Errorf("must be positive"))
	}
	return nil
}

func validateActivityFeed(cfg *Config) error {
	a := cfg.ActivityFeed
	if a.RingSize < 1 {
		return NewValidationError("activity_feed", "ring_size", fmt.Errorf("must be at least 1"))
	}
	if a.EvictionInterval <= 0 {
		return NewValidationError("activity_feed", "eviction_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

func validateScanPool(cfg *Config) error {
	s := cfg.ScanPool
	if s.WorkerCount < 1 || s.WorkerCount > 50 {
		return NewValidationError("scan_pool", "worker_count", fmt.Errorf("must be between 1 and 50, got %d", s.WorkerCount))
	}
	if s.PollInterval <= 0 {
		return NewValidationError("scan_pool", "poll_interval", fmt.Errorf("must be positive"))
	}
	if s.OrphanDetectionInterval <= 0 {
		return NewValidationError("scan_pool", "orphan_detection_interval", fmt.Errorf("must be positive"))
	}
	if s.OrphanThreshold <= 0 {
		return NewValidationError("scan_pool", "orphan_threshold", fmt.Errorf("must be positive"))
	}
	if s.ProgressReportEvery < 1 {
		return NewValidationError("scan_pool", "progress_report_every", fmt.Errorf("must be at least 1"))
	}
	return nil
}

func validateCollaboration(cfg *Config) error {
	c := cfg.Collaboration
	if c.MaxSessionsPerUser < 1 {
		return NewValidationError("collaboration", "max_sessions_per_user", fmt.Errorf("must be at least 1"))
	}
	if c.MaxMessagesPerSession < 1 {
		return NewValidationError("collaboration", "max_messages_per_session", fmt.Errorf("must be at least 1"))
	}
	if c.MaxPendingRequests < 1 {
		return NewValidationError("collaboration", "max_pending_requests", fmt.Errorf("must be at least 1"))
	}
	if c.SessionTimeout <= 0 {
		return NewValidationError("collaboration", "session_timeout", fmt.Errorf("must be positive"))
	}
	if c.CleanupInterval <= 0 {
		return NewValidationError("collaboration", "cleanup_interval", fmt.Errorf("must be positive"))
	}
	return nil
}

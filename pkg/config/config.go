// Package config loads and validates alertfabric's YAML configuration:
// one struct per subsystem (rule engine, notification, subscriber,
// activity feed, scan pool, collaboration), environment-overlaid via
// godotenv, validated with go-playground/validator/v10.
package config

import (
	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/collab"
	"github.com/regulens/alertfabric/pkg/notify"
	"github.com/regulens/alertfabric/pkg/regulatory"
	"github.com/regulens/alertfabric/pkg/rules"
	"github.com/regulens/alertfabric/pkg/scan"
)

// Config is the umbrella configuration object returned by Initialize()
// and used throughout cmd/alertd to construct every subsystem.
type Config struct {
	configDir string

	HTTP HTTPConfig `yaml:"http"`

	RuleEngine    rules.Config      `yaml:"rule_engine"`
	Notification  notify.Config     `yaml:"notification"`
	Subscriber    regulatory.Config `yaml:"subscriber"`
	ActivityFeed  activity.Config   `yaml:"activity_feed"`
	ScanPool      scan.Config       `yaml:"scan_pool"`
	Collaboration collab.Config     `yaml:"collaboration"`
}

// HTTPConfig controls internal/api's listener and CORS/WebSocket origin policy.
type HTTPConfig struct {
	Port             string   `yaml:"port" validate:"required"`
	GinMode          string   `yaml:"gin_mode"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}

// DefaultHTTPConfig listens on port 8080 with gin in debug mode.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{Port: "8080", GinMode: "debug"}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string { return c.configDir }

// defaultConfig assembles every subsystem's Default*Config() into one
// Config, the base that YAML overlays merge onto.
func defaultConfig() *Config {
	return &Config{
		HTTP:          DefaultHTTPConfig(),
		RuleEngine:    rules.DefaultConfig(),
		Notification:  notify.DefaultConfig(),
		Subscriber:    regulatory.DefaultConfig(),
		ActivityFeed:  activity.DefaultConfig(),
		ScanPool:      scan.DefaultConfig(),
		Collaboration: collab.DefaultConfig(),
	}
}

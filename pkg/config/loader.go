package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/regulens/alertfabric/pkg/activity"
	"github.com/regulens/alertfabric/pkg/collab"
	"github.com/regulens/alertfabric/pkg/notify"
	"github.com/regulens/alertfabric/pkg/regulatory"
	"github.com/regulens/alertfabric/pkg/rules"
	"github.com/regulens/alertfabric/pkg/scan"
)

// YAMLConfig mirrors alertfabric.yaml's top-level structure. Any
// section omitted from the file falls back to its subsystem's
// Default*Config(), merged in by load(). Each section is a pointer so
// yaml.v3 leaves it nil when the section is absent, letting mergeYAML
// tell "section omitted" apart from "section present but zero-valued".
type YAMLConfig struct {
	HTTP          *HTTPConfig       `yaml:"http"`
	RuleEngine    *rules.Config     `yaml:"rule_engine"`
	Notification  *notify.Config    `yaml:"notification"`
	Subscriber    *regulatory.Config `yaml:"subscriber"`
	ActivityFeed  *activity.Config  `yaml:"activity_feed"`
	ScanPool      *scan.Config      `yaml:"scan_pool"`
	Collaboration *collab.Config    `yaml:"collaboration"`
}

// Initialize loads alertfabric.yaml from configDir (optional — a
// missing file just means "use every subsystem default"), overlays a
// .env file via godotenv (secrets: SMTP_PASSWORD, ...), and validates
// the result.
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("initializing configuration")

	envPath := filepath.Join(configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Warn("no .env file loaded, continuing with existing environment", "path", envPath)
	}

	cfg, err := load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if pw := os.Getenv("SMTP_PASSWORD"); pw != "" {
		cfg.Notification.SMTPPassword = pw
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized successfully", "http_port", cfg.HTTP.Port)
	return cfg, nil
}

func load(configDir string) (*Config, error) {
	cfg := defaultConfig()
	cfg.configDir = configDir

	path := filepath.Join(configDir, "alertfabric.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("alertfabric.yaml not found, using built-in defaults", "path", path)
			return cfg, nil
		}
		return nil, err
	}

	data = ExpandEnv(data)

	var yamlCfg YAMLConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	if err := mergeYAML(cfg, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to merge YAML config: %w", err)
	}
	return cfg, nil
}

// mergeYAML overlays whatever sections alertfabric.yaml specifies onto
// cfg's defaults, following queue.go's mergo.WithOverride idiom so an
// unset YAML field never zeroes out a built-in default.
func mergeYAML(cfg *Config, y *YAMLConfig) error {
	if y.HTTP != nil {
		if err := mergo.Merge(&cfg.HTTP, y.HTTP, mergo.WithOverride); err != nil {
			return err
		}
	}
	if y.RuleEngine != nil {
		if err := mergo.Merge(&cfg.RuleEngine, y.RuleEngine, mergo.WithOverride); err != nil {
			return err
		}
	}
	if y.Notification != nil {
		if err := mergo.Merge(&cfg.Notification, y.Notification, mergo.WithOverride); err != nil {
			return err
		}
	}
	if y.Subscriber != nil {
		if err := mergo.Merge(&cfg.Subscriber, y.Subscriber, mergo.WithOverride); err != nil {
			return err
		}
	}
	if y.ActivityFeed != nil {
		if err := mergo.Merge(&cfg.ActivityFeed, y.ActivityFeed, mergo.WithOverride); err != nil {
			return err
		}
	}
	if y.ScanPool != nil {
		if err := mergo.Merge(&cfg.ScanPool, y.ScanPool, mergo.WithOverride); err != nil {
			return err
		}
	}
	if y.Collaboration != nil {
		if err := mergo.Merge(&cfg.Collaboration, y.Collaboration, mergo.WithOverride); err != nil {
			return err
		}
	}
	return nil
}

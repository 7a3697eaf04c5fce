package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, Validate(cfg))
}

func TestValidateRejectsMissingHTTPPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.HTTP.Port = ""
	assert.Error(t, Validate(cfg))
}

func TestValidateRejectsNonPositiveEvaluationInterval(t *testing.T) {
	cfg := defaultConfig()
	cfg.RuleEngine.EvaluationInterval = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation_interval")
}

func TestValidateRejectsZeroScanWorkerCount(t *testing.T) {
	cfg := defaultConfig()
	cfg.ScanPool.WorkerCount = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker_count")
}

func TestValidateRejectsZeroCollaborationCaps(t *testing.T) {
	cfg := defaultConfig()
	cfg.Collaboration.MaxSessionsPerUser = 0
	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_sessions_per_user")
}

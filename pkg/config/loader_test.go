package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeUsesDefaultsWhenYAMLMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 5, cfg.Notification.WorkerCount)
	assert.Equal(t, 3, cfg.ScanPool.WorkerCount)
}

func TestInitializeOverlaysYAMLOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
http:
  port: "9090"
notification:
  worker_count: 9
scan_pool:
  worker_count: 7
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alertfabric.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 9, cfg.Notification.WorkerCount)
	// Unset fields in the notification section keep their defaults.
	assert.Equal(t, 10, cfg.Notification.RetryBatchLimit)
	assert.Equal(t, 7, cfg.ScanPool.WorkerCount)
}

func TestInitializeExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_MONITOR_URL", "https://monitor.example.com")
	yamlContent := `
subscriber:
  monitor_url: "${TEST_MONITOR_URL}"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alertfabric.yaml"), []byte(yamlContent), 0o644))

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, "https://monitor.example.com", cfg.Subscriber.MonitorURL)
}

func TestInitializeRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alertfabric.yaml"), []byte("not: [valid"), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitializeRejectsInvalidWorkerCount(t *testing.T) {
	dir := t.TempDir()
	yamlContent := `
notification:
  worker_count: 100
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alertfabric.yaml"), []byte(yamlContent), 0o644))

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

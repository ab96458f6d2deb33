package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8, cfg.Discovery.Workers)
	assert.Equal(t, 5, cfg.Discovery.MinSuccessful)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 15*time.Second, cfg.ProbeTimeout())
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, 2, cfg.Auth.MaxRetries)
	assert.Equal(t, 15*time.Minute, cfg.RetryWindow())
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
data_dir: /tmp/fsync-test
discovery:
  workers: 16
  cache_ttl_hours: 6
auth:
  max_retries: 3
log:
  level: debug
tls:
  insecure_skip_verify: true
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/fsync-test", cfg.DataDir)
	assert.Equal(t, 16, cfg.Discovery.Workers)
	assert.Equal(t, 6*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 3, cfg.Auth.MaxRetries)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.TLS.InsecureSkipVerify)
	// untouched values keep defaults
	assert.Equal(t, 5, cfg.Discovery.MinSuccessful)
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Discovery.Workers, cfg.Discovery.Workers)
}

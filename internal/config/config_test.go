package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "resumewright-render", cfg.Engine.Binary)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.FreshnessThreshold)
	assert.False(t, cfg.Jobs.GCStale)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9000

[storage]
backend = "memory"

[jobs]
freshness_threshold = "90s"
gc_stale = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 90*time.Second, cfg.Jobs.FreshnessThreshold)
	assert.True(t, cfg.Jobs.GCStale)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RW_SERVER_PORT", "7777")
	t.Setenv("RW_DATABASE_URL", "postgres://localhost/resumewright")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/resumewright", cfg.Storage.DatabaseURL)
}

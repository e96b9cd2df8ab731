package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// The test working directory has no config file, so Load falls back to
	// defaults plus environment.
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "visionclaim", cfg.Database.Name)
	assert.Equal(t, "file://migrations", cfg.Database.MigrationsPath)

	assert.Equal(t, time.Hour, cfg.Redis.ReportTTL)

	assert.Equal(t, "openai", cfg.Detection.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Detection.Model)
	assert.Empty(t, cfg.Detection.APIKey)

	assert.Equal(t, "configs/cost_data.json", cfg.Catalog.Path)
	assert.Zero(t, cfg.Catalog.ReloadInterval)

	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenDuration)
	assert.Equal(t, "claims-engine", cfg.Auth.Issuer)

	assert.Equal(t, int64(16*1024*1024), cfg.Uploads.MaxBytes)
	assert.Contains(t, cfg.Uploads.AllowedExtensions, "jpg")

	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 30, cfg.Scheduler.ReportRetentionDays)

	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CLAIMS_ENGINE_DETECTION_PROVIDER", "simulated")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "simulated", cfg.Detection.Provider)
}

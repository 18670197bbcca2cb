package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8700", cfg.Server.Port)
	assert.Equal(t, 16*time.Millisecond, cfg.Reactive.TickInterval)
	assert.Equal(t, 32*time.Millisecond, cfg.Reactive.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.Sandbox.CallTimeout)
	assert.Equal(t, uint32(1<<20), cfg.Sandbox.MaxMemoryBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TICK_INTERVAL", "8ms")
	t.Setenv("SANDBOX_CALL_TIMEOUT", "2s")
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 8*time.Millisecond, cfg.Reactive.TickInterval)
	assert.Equal(t, 2*time.Second, cfg.Sandbox.CallTimeout)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	t.Setenv("TICK_INTERVAL", "soon")

	cfg := LoadOrDefault()
	assert.Equal(t, 16*time.Millisecond, cfg.Reactive.TickInterval)
}

func TestDefaultMatchesEnvDefaults(t *testing.T) {
	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), loaded)
}

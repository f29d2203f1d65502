package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FALLBACK_SEED", "7")
	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "file", cfg.Index.Source)
	assert.Equal(t, 10*time.Second, cfg.External.Timeout)
	assert.Equal(t, int64(8), cfg.External.MaxInFlight)
	assert.Equal(t, int64(7), cfg.Ai.FallbackSeed)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("INDEX_SOURCE", "Postgres")
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "not-a-duration")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("GO_ENV", "production")

	cfg := Load()
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "postgres", cfg.Index.Source)
	assert.Equal(t, 10*time.Second, cfg.External.Timeout)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.True(t, cfg.App.OtelEnabled)
	assert.True(t, cfg.IsProduction())
}

func TestValidateSessionSecret(t *testing.T) {
	t.Setenv("GO_ENV", "development")
	assert.NoError(t, Load().Validate(), "the fallback secret is fine outside production")

	t.Setenv("GO_ENV", "production")
	assert.ErrorIs(t, Load().Validate(), ErrDefaultSecret)

	t.Setenv("SESSION_SECRET", "")
	assert.ErrorIs(t, Load().Validate(), ErrDefaultSecret)

	t.Setenv("SESSION_SECRET", "a-real-secret")
	assert.NoError(t, Load().Validate())
}

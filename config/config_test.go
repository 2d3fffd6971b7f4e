package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("config.yml")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 300*time.Millisecond, cfg.Positioner.Debounce)
	assert.Equal(t, 2.0, cfg.Positioner.ZoomRange.Max)
	assert.Equal(t, 0.5, cfg.Positioner.PreviewZoomRange.Min)
	assert.Equal(t, "/api/profile", cfg.ProfileAPI.Path)
	assert.Equal(t, 30*time.Second, cfg.ProfileAPI.BreakerTimeout)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowOrigins)
	assert.Equal(t, "memory", cfg.Session.Store)
}

func TestDefaultsFillMissingKeys(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.15, cfg.Positioner.ButtonStep)
	assert.Equal(t, 50.0, cfg.Positioner.OffsetLimit)
	assert.Equal(t, "quizmaster:toasts", cfg.Notify.Channel)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QUIZMASTER_SERVER_PORT", "7000")
	t.Setenv("QUIZMASTER_PROFILE_API_BASE_URL", "https://api.quizmaster.test")
	t.Setenv("QUIZMASTER_POSITIONER_DEBOUNCE", "1s")
	t.Setenv("QUIZMASTER_SESSION_JWT_SECRET", "s3cret")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "https://api.quizmaster.test", cfg.ProfileAPI.BaseURL)
	assert.Equal(t, time.Second, cfg.Positioner.Debounce)
	assert.Equal(t, "s3cret", cfg.Session.JWTSecret)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	_, err := Load(writeConfig(t, "session:\n  store: disk\n"))
	assert.ErrorContains(t, err, "unknown session.store")

	_, err = Load(writeConfig(t, "session:\n  store: redis\n"))
	assert.ErrorContains(t, err, "session.redis_url")

	_, err = Load(writeConfig(t, "notify:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "notify.redis.url")

	_, err = Load(writeConfig(t, "server:\n  port: 0\n"))
	assert.ErrorContains(t, err, "server.port")
}

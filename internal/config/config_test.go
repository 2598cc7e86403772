package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/ridestats/internal/metrics"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "BASE_URL", "REDIS_ADDR", "SYNC_CRON", "LOG_LEVEL", "STRAVA_CLIENT_ID", "STRAVA_CLIENT_SECRET"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "0 */6 * * *", cfg.SyncCron)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.False(t, cfg.HasStrava())
	assert.Equal(t, zerolog.InfoLevel, cfg.Level())
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://localhost/rides")
	t.Setenv("BASE_URL", "https://rides.example.com/")
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("STRAVA_CLIENT_ID", "test_id")
	t.Setenv("STRAVA_CLIENT_SECRET", "test_secret")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "test_id", cfg.Strava.ClientID)
	assert.True(t, cfg.HasStrava())
	assert.True(t, cfg.SecureCookies())
	assert.Equal(t, "https://rides.example.com/oauth/strava/callback", cfg.StravaRedirectURL())
	assert.Equal(t, zerolog.DebugLevel, cfg.Level())
}

func TestValidate(t *testing.T) {
	cfg := &Config{BaseURL: "not a url", SessionSecret: "short"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "SESSION_SECRET")
	assert.Contains(t, err.Error(), "BASE_URL")
}

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadProfileMissingFile(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	s, err := p.Scorer()
	require.NoError(t, err)
	assert.Equal(t, metrics.DefaultScorer(), s)
	assert.Equal(t, metrics.DefaultFilters().Epoch, p.Filters().Epoch)
}

func TestLoadProfileOverrides(t *testing.T) {
	path := writeProfile(t, `
[weights]
distance = 0.4
speed = 0.2

[scoring]
neutral_heart_rate = 0.3
epoch = 2020-01-01T00:00:00Z
`)
	p, err := LoadProfile(path)
	require.NoError(t, err)

	s, err := p.Scorer()
	require.NoError(t, err)
	assert.Equal(t, 0.4, s.Weights.Distance)
	assert.Equal(t, 0.2, s.Weights.Speed)
	assert.Equal(t, 0.2, s.Weights.HeartRate)
	assert.Equal(t, 0.3, s.NeutralHeartRate)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), p.Filters().Epoch)
}

func TestLoadProfileRejectsBadWeights(t *testing.T) {
	p, err := LoadProfile(writeProfile(t, "[weights]\ndistance = 0.9\n"))
	require.NoError(t, err)
	_, err = p.Scorer()
	assert.Error(t, err)
}

func TestLoadProfileMalformed(t *testing.T) {
	_, err := LoadProfile(writeProfile(t, "[weights\n"))
	assert.Error(t, err)
}

package config

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PEERRIDE_FIREBASE_PROJECT_ID", "peer-ride-dev")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "peer-ride-dev", cfg.Firebase.ProjectID)
	assert.Equal(t, 5, cfg.Trips.MaxActive)
	assert.Equal(t, 0.5, cfg.Recaptcha.MinScore)
	assert.Equal(t, 60*time.Second, cfg.Signup.CacheTTL)
	assert.Equal(t, 3, cfg.Cleanup.Hour)
	assert.Equal(t, "Asia/Taipei", cfg.Cleanup.Timezone)
	assert.Equal(t, uint64(3), cfg.Cleanup.MaxRetries)
	assert.True(t, cfg.Notify.Watch)
	assert.Equal(t, 30*time.Second, cfg.Notify.LeaseTTL)
	assert.Equal(t, time.Second, cfg.Notify.RetryBackoff)
	assert.Equal(t, time.Minute, cfg.Notify.MaxBackoff)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PEERRIDE_FIREBASE_PROJECT_ID", "peer-ride-prod")
	t.Setenv("PEERRIDE_TRIPS_MAX_ACTIVE", "3")
	t.Setenv("PEERRIDE_SIGNUP_CACHE_TTL", "2m")
	t.Setenv("PEERRIDE_RECAPTCHA_ENABLED", "true")
	t.Setenv("PEERRIDE_RECAPTCHA_SECRET", "s3cret")
	t.Setenv("PEERRIDE_NOTIFY_LEASE_TTL", "10s")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Trips.MaxActive)
	assert.Equal(t, 2*time.Minute, cfg.Signup.CacheTTL)
	assert.True(t, cfg.Recaptcha.Enabled)
	assert.Equal(t, "s3cret", cfg.Recaptcha.Secret)
	assert.Equal(t, 10*time.Second, cfg.Notify.LeaseTTL)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("PEERRIDE_FIREBASE_PROJECT_ID", "")
	t.Setenv("PEERRIDE_RECAPTCHA_ENABLED", "true")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PEERRIDE_FIREBASE_PROJECT_ID")
	assert.Contains(t, err.Error(), "PEERRIDE_RECAPTCHA_SECRET")
}

func TestLoad_BadTimezone(t *testing.T) {
	t.Setenv("PEERRIDE_FIREBASE_PROJECT_ID", "peer-ride-dev")
	t.Setenv("PEERRIDE_CLEANUP_TIMEZONE", "Mars/Olympus")

	_, err := Load()

	require.Error(t, err)
}

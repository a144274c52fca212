package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for k := range defaults {
		t.Setenv(strings.ToUpper(k), "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5175, cfg.Port)
	assert.Equal(t, ":5175", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, DevJWTSecret, cfg.JWTSecret)
	assert.Equal(t, 14, cfg.JWTExpiresDays)
	assert.Equal(t, time.Second, cfg.MismatchDelay)
	assert.Equal(t, time.Second, cfg.TickInterval)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.False(t, cfg.Production)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("STORAGE_BACKEND", "file")
	t.Setenv("DATA_DIR", "/tmp/scores")
	t.Setenv("MISMATCH_DELAY", "750ms")
	t.Setenv("TICK_INTERVAL", "250ms")
	t.Setenv("SESSION_TTL", "5m")
	t.Setenv("CLIENT_ORIGIN", "https://play.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, "/tmp/scores", cfg.DataDir)
	assert.Equal(t, 750*time.Millisecond, cfg.MismatchDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "https://play.example.com", cfg.ClientOrigin)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"port out of range": {"PORT": "70000"},
		"unknown level":     {"LOG_LEVEL": "loud"},
		"unknown backend":   {"STORAGE_BACKEND": "redis"},
		"bad origin":        {"CLIENT_ORIGIN": "not a url"},
		"negative ttl":      {"SESSION_TTL": "-1m"},
		"prod dev secret":   {"PRODUCTION": "true"},
		"prod short secret": {"PRODUCTION": "true", "JWT_SECRET": "short"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadProductionWithSecret(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRODUCTION", "true")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Production)
}

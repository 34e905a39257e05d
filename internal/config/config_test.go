package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "http://localhost:8081/api", cfg.BackendURL)
	assert.Equal(t, DriverRedis, cfg.SlotDriver)
	assert.Equal(t, 30*24*time.Hour, cfg.SlotTTL)
	assert.Equal(t, 5, cfg.CarouselSize)
	assert.Equal(t, 4, cfg.RelatedLimit)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "payment-results", cfg.PaymentTopic)
	assert.False(t, cfg.CookieSecure)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SLOT_DRIVER", "SQLite")
	t.Setenv("SLOT_TTL", "0s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("CAROUSEL_SIZE", "8")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("REQUEST_TIMEOUT", "2s")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.SlotDriver)
	assert.Zero(t, cfg.SlotTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 8, cfg.CarouselSize)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("CAROUSEL_SIZE", "five")
	t.Setenv("COOKIE_SECURE", "maybe")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_TIMEOUT")
	assert.Contains(t, err.Error(), "CAROUSEL_SIZE")
	assert.Contains(t, err.Error(), "COOKIE_SECURE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown driver", env: map[string]string{"SLOT_DRIVER": "etcd"}, want: "SLOT_DRIVER"},
		{name: "negative ttl", env: map[string]string{"SLOT_TTL": "-1h"}, want: "SLOT_TTL"},
		{name: "zero carousel", env: map[string]string{"CAROUSEL_SIZE": "0"}, want: "CAROUSEL_SIZE"},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}, want: "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RELATED_LIMIT=7\nLOG_FORMAT=console\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("RELATED_LIMIT", "")
	t.Setenv("LOG_FORMAT", "")
	os.Unsetenv("RELATED_LIMIT")
	os.Unsetenv("LOG_FORMAT")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.RelatedLimit)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoad_WithoutDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load()
	assert.NoError(t, err)
}

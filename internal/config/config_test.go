package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "WEBHOOK_PUBLIC_URL", "OPENAI_API_KEY", "PORT", "DB_PATH",
		"LOG_LEVEL", "LOG_PRETTY", "FETCH_WORKERS", "CACHE_TTL", "WEIGHTS_SUM_TO_ONE",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir()) // no .env

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9095", cfg.Port)
	assert.Equal(t, "/app/data/prices.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
	assert.False(t, cfg.WeightsSumToOne)
	assert.Empty(t, cfg.OpenAIKey)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "8080")
	t.Setenv("FETCH_WORKERS", "8")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("WEIGHTS_SUM_TO_ONE", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 8, cfg.FetchWorkers)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.LogPretty)
	assert.True(t, cfg.WeightsSumToOne)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("FETCH_WORKERS", "many")
	t.Setenv("CACHE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.FetchWorkers)
	assert.Equal(t, 12*time.Hour, cfg.CacheTTL)
}

func TestLoadRejectsZeroWorkers(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("FETCH_WORKERS", "0")

	_, err := Load()
	assert.ErrorContains(t, err, "FETCH_WORKERS")
}

func TestValidateBot(t *testing.T) {
	cfg := &Config{FetchWorkers: 1}
	err := cfg.ValidateBot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "WEBHOOK_PUBLIC_URL")

	cfg.TelegramToken, cfg.WebhookPublicURL = "t", "https://example.org"
	assert.NoError(t, cfg.ValidateBot())
}

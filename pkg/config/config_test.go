package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "Europe/Moscow", cfg.Notifications.TimeZone)
	assert.Equal(t, 4, cfg.Notifications.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Notifications.DispatchTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Reports.CacheTTL)
	assert.False(t, cfg.Telegram.Enabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", " 123:abc ")
	t.Setenv("NOTIFY_CONCURRENCY", "-3")
	t.Setenv("NOTIFY_DISPATCH_TIMEOUT", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Telegram.Enabled())
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, 4, cfg.Notifications.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Notifications.DispatchTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

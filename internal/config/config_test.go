package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sendgrid", cfg.Delivery.PrimaryProvider)
	assert.Equal(t, []string{"mailgun", "ses"}, cfg.Delivery.FallbackProviders)
	assert.Equal(t, 3, cfg.Delivery.MaxRetries)
	assert.Equal(t, 1*time.Second, cfg.Delivery.BaseRetryDelay())
	assert.Equal(t, 10, cfg.Delivery.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.Delivery.BatchPause())
	assert.Equal(t, "https://api.sendgrid.com/v3", cfg.SendGrid.BaseURL)
	assert.Equal(t, "us-east-1", cfg.SES.Region)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeConfig(t, `
delivery:
  primary_provider: sparkpost
  fallback_providers: [sendgrid]
  max_retries: 5
  base_retry_delay_ms: 250
  batch_size: 50
  batch_pause_seconds: 2
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sparkpost", cfg.Delivery.PrimaryProvider)
	assert.Equal(t, []string{"sendgrid"}, cfg.Delivery.FallbackProviders)
	assert.Equal(t, 5, cfg.Delivery.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.Delivery.BaseRetryDelay())
	assert.Equal(t, 50, cfg.Delivery.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.Delivery.BatchPause())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
sendgrid:
  api_key: from-yaml
`)

	t.Setenv("SENDGRID_API_KEY", "from-env")
	t.Setenv("MAILGUN_API_KEY", "mg-key")
	t.Setenv("MAILGUN_DOMAIN", "mail.example.com")
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PRIMARY_PROVIDER", "Mailgun")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.SendGrid.APIKey, "env must win over yaml")
	assert.Equal(t, "mg-key", cfg.Mailgun.APIKey)
	assert.Equal(t, "mail.example.com", cfg.Mailgun.Domain)
	assert.Equal(t, "postgres://env/db", cfg.Database.URL)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Redis.Enabled, "setting REDIS_ADDR enables distribution tracking")
	assert.Equal(t, "mailgun", cfg.Delivery.PrimaryProvider, "provider names are normalized to lower case")
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "surebet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
paths:
  raw_dir: /tmp/raw
fetcher:
  enabled: [novibet, fonbet]
  timeout: 90s
  headless: false
matcher:
  profile: lenient
  time_threshold: 10m
  name_threshold: 70
arbitrage:
  total_stake: 250
notify:
  webhook_url: http://localhost:9000/hook
  max_retries: 2
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/raw", cfg.Paths.RawDir)
	assert.Equal(t, "data/matched", cfg.Paths.MatchedDir)
	assert.Equal(t, 90*time.Second, cfg.Fetcher.Timeout)
	assert.False(t, cfg.Fetcher.IsHeadless())
	assert.True(t, cfg.Fetcher.SourceEnabled("Fonbet"))
	assert.False(t, cfg.Fetcher.SourceEnabled("stoiximan"))
	assert.Equal(t, "lenient", cfg.Matcher.Profile)
	assert.Equal(t, 10*time.Minute, cfg.Matcher.TimeThreshold)
	assert.Equal(t, 70, cfg.Matcher.NameThreshold)
	assert.Equal(t, 250.0, cfg.Arbitrage.TotalStake)
	assert.Equal(t, 10, cfg.Arbitrage.TopN)
	assert.Equal(t, "http://localhost:9000/hook", cfg.Notify.WebhookURL)
	assert.Equal(t, 10*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, 2, cfg.Notify.MaxRetries)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SUREBET_WEBHOOK_URL", "https://hooks.example.com/arb")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "-100200")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/surebet?sslmode=disable")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "notify:\n  webhook_url: http://ignored\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://hooks.example.com/arb", cfg.Notify.WebhookURL)
	assert.True(t, cfg.Notify.TelegramEnabled())
	assert.Equal(t, int64(-100200), cfg.Notify.TelegramChatID)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/surebet?sslmode=disable", cfg.Storage.DSN)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_BadChatID(t *testing.T) {
	t.Setenv("TELEGRAM_CHAT_ID", "general")
	_, err := Load("")
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "data/raw", cfg.Paths.RawDir)
	assert.Equal(t, "data/opportunities", cfg.Paths.OpportunitiesDir)
	assert.Equal(t, "purification", cfg.Matcher.Profile)
	assert.Equal(t, 15*time.Minute, cfg.Matcher.TimeThreshold)
	assert.Equal(t, 1000.0, cfg.Arbitrage.TotalStake)
	assert.Equal(t, 2*time.Second, cfg.Notify.TelegramInterval)
	assert.True(t, cfg.Fetcher.IsHeadless())
	assert.Equal(t, "Europe/Athens", cfg.Fetcher.Location().String())
	assert.False(t, cfg.Notify.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown profile", func(c *Config) { c.Matcher.Profile = "strict" }},
		{"threshold above 100", func(c *Config) { c.Matcher.NameThreshold = 101 }},
		{"negative coverage", func(c *Config) { c.Matcher.MinCoverage = -1 }},
		{"zero stake", func(c *Config) { c.Arbitrage.TotalStake = 0 }},
		{"zero time threshold", func(c *Config) { c.Matcher.TimeThreshold = 0 }},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "mysql" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"telegram token without chat", func(c *Config) { c.Notify.TelegramBotToken = "123:abc" }},
		{"unknown timezone", func(c *Config) { c.Fetcher.Timezone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if !errors.Is(err, ErrInvalid) {
			t.Errorf("%s: Validate() = %v, want ErrInvalid", tt.name, err)
		}
	}
}

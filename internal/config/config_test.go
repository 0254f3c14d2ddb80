package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/flockcast/internal/forecast"
	"github.com/rewired-gh/flockcast/internal/models"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndValidate(t *testing.T) {
	path := writeConfig(t, `
forecast:
  broiler:
    target_age: 47
    price_per_kg: 2.35
  expense_growth: 1.4
  thresholds:
    min_growth_rate: 0.045

peers:
  source: http
  base_url: "http://peers.local"
  timeout: 3s
  redis_addr: "localhost:6379"
  cache_ttl: 10m

storage:
  db_path: "./data/test.db"

telegram:
  bot_token: "test_token"
  chat_id: "test_chat_id"
  enabled: true

watch:
  interval: 30m
  cooldown: 12h
  top_k: 5

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 47, cfg.Forecast.Broiler.TargetAge)
	assert.Equal(t, 2.35, cfg.Forecast.Broiler.PricePerKg)
	assert.Equal(t, 42, cfg.Forecast.Grower.TargetAge, "unset categories keep defaults")
	assert.Equal(t, 1.4, cfg.Forecast.ExpenseGrowth)
	assert.Equal(t, 0.045, cfg.Forecast.Thresholds.MinGrowthRate)
	assert.Equal(t, 0.9, cfg.Forecast.Thresholds.PeerGrowthRatio)
	assert.Equal(t, PeerSourceHTTP, cfg.Peers.Source)
	assert.Equal(t, 3*time.Second, cfg.Peers.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Peers.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, 5, cfg.Watch.TopK)
	assert.Equal(t, 3, cfg.Telegram.MaxRetries)

	tables := cfg.Forecast.Tables()
	assert.Equal(t, 47, tables.Categories[models.CategoryBroiler].TargetAge)
	assert.Equal(t, 140, tables.Categories[models.CategoryLayer].TargetAge)
}

func TestLoadDefaultsMatchForecastTables(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, forecast.DefaultTables(), cfg.Forecast.Tables())
	assert.Equal(t, PeerSourceStore, cfg.Peers.Source)
	assert.Equal(t, "./data/flockcast.db", cfg.Storage.DBPath)
	assert.False(t, cfg.Telegram.Enabled)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLOCKCAST_STORAGE_DB_PATH", "/var/lib/flockcast/lots.db")
	t.Setenv("FLOCKCAST_LOGGING_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/flockcast/lots.db", cfg.Storage.DBPath)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing telegram token when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.ChatID = "42"
		}},
		{"missing telegram chat when enabled", func(c *Config) {
			c.Telegram.Enabled = true
			c.Telegram.BotToken = "token"
		}},
		{"zero target age", func(c *Config) { c.Forecast.Layer.TargetAge = 0 }},
		{"expense growth below one", func(c *Config) { c.Forecast.ExpenseGrowth = 0.8 }},
		{"efficiency shares above one", func(c *Config) { c.Forecast.Efficiency.ROIShare = 0.9 }},
		{"near target ratio out of range", func(c *Config) { c.Forecast.Thresholds.NearTargetRatio = 1.5 }},
		{"high mortality above one", func(c *Config) { c.Forecast.Thresholds.HighMortalityRate = 2 }},
		{"unknown peer source", func(c *Config) { c.Peers.Source = "carrier-pigeon" }},
		{"http source without url", func(c *Config) { c.Peers.Source = PeerSourceHTTP }},
		{"two peer retries", func(c *Config) { c.Peers.Retries = 2 }},
		{"zero peer timeout", func(c *Config) { c.Peers.Timeout = 0 }},
		{"redis with tiny ttl", func(c *Config) {
			c.Peers.RedisAddr = "localhost:6379"
			c.Peers.CacheTTL = time.Millisecond
		}},
		{"empty db path", func(c *Config) { c.Storage.DBPath = "" }},
		{"watch interval too short", func(c *Config) { c.Watch.Interval = 10 * time.Second }},
		{"top k zero", func(c *Config) { c.Watch.TopK = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

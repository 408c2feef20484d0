package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "stockledger", cfg.App.Name)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.True(t, cfg.App.IsDevelopment())
		assert.Equal(t, int32(20), cfg.Database.MaxConns)
		assert.True(t, cfg.Database.AutoMigrate)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, 100, cfg.Outbox.BatchSize)
		assert.Equal(t, time.Minute, cfg.Outbox.Backoff)
		assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
		assert.Equal(t, "stockledger.notifications", cfg.Notify.Channel)
		assert.Empty(t, cfg.Variance.Rule)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("STOCKLEDGER_APP_PORT", "9090")
		t.Setenv("STOCKLEDGER_APP_ENV", "production")
		t.Setenv("STOCKLEDGER_DATABASE_DSN", "postgres://ledger@db:5432/ledger")
		t.Setenv("STOCKLEDGER_REDIS_ENABLED", "true")
		t.Setenv("STOCKLEDGER_VARIANCE_THRESHOLD_PERCENT", "2.5")
		t.Setenv("STOCKLEDGER_OUTBOX_POLL_INTERVAL", "250ms")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.App.Port)
		assert.False(t, cfg.App.IsDevelopment())
		assert.Equal(t, "postgres://ledger@db:5432/ledger", cfg.Database.DSN)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, 250*time.Millisecond, cfg.Outbox.PollInterval)

		det, err := cfg.Variance.Detector()
		require.NoError(t, err)
		require.NotNil(t, det.ThresholdPercent)
		assert.Equal(t, "2.5", det.ThresholdPercent.String())
		assert.Nil(t, det.ThresholdAmount)
	})

	t.Run("invalid settings are rejected", func(t *testing.T) {
		t.Setenv("STOCKLEDGER_APP_PORT", "70000")
		_, err := Load()
		assert.ErrorContains(t, err, "app.port")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:         AppConfig{Port: "8080"},
			Database:    DatabaseConfig{DSN: "postgres://x", MaxConns: 10, MinConns: 1},
			Outbox:      OutboxConfig{BatchSize: 10, MaxRetries: 3},
			Idempotency: IdempotencyConfig{Enabled: true, TTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"non numeric port", func(c *Config) { c.App.Port = "http" }, "app.port"},
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"min above max conns", func(c *Config) { c.Database.MinConns = 11 }, "database.min_conns"},
		{"zero batch", func(c *Config) { c.Outbox.BatchSize = 0 }, "outbox.batch_size"},
		{"zero ttl", func(c *Config) { c.Idempotency.TTL = 0 }, "idempotency.ttl"},
		{"ttl ignored when disabled", func(c *Config) { c.Idempotency = IdempotencyConfig{} }, ""},
		{"negative percent", func(c *Config) { c.Variance.ThresholdPercent = "-1" }, "variance.threshold_percent"},
		{"malformed amount", func(c *Config) { c.Variance.ThresholdAmount = "ten" }, "variance.threshold_amount"},
		{"bad rule", func(c *Config) { c.Variance.Rule = "variance_percent +" }, "variance.rule"},
		{"non boolean rule", func(c *Config) { c.Variance.Rule = "variance_percent * 2.0" }, "variance.rule"},
		{"good rule", func(c *Config) { c.Variance.Rule = "abs_variance_percent > 5.0" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

// Package config loads process configuration from an optional file, the
// environment and built-in defaults.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"stockledger/internal/domain/variance"
)

// EnvPrefix prefixes every environment override, e.g. STOCKLEDGER_DATABASE_DSN.
const EnvPrefix = "STOCKLEDGER"

// Config holds all application configuration.
type Config struct {
	App         AppConfig
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Variance    VarianceConfig
	Outbox      OutboxConfig
	Idempotency IdempotencyConfig
	HTTP        HTTPConfig
	Notify      NotifyConfig
}

// AppConfig holds application-specific settings.
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsDevelopment reports whether the process runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	AutoMigrate     bool
}

// RedisConfig holds Redis connection settings. Redis is optional.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// VarianceConfig holds the NCR trigger policy. Empty values mean "not set".
type VarianceConfig struct {
	ThresholdPercent string
	ThresholdAmount  string
	Rule             string
}

// OutboxConfig tunes the worker relay.
type OutboxConfig struct {
	BatchSize    int
	PollInterval time.Duration
	MaxRetries   int
	Backoff      time.Duration
}

// IdempotencyConfig controls X-Idempotency-Key handling.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// HTTPConfig holds HTTP server timeouts.
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodySize     int64
}

// NotifyConfig selects where the worker delivers notifications.
type NotifyConfig struct {
	// Channel is the Redis pub/sub channel; notifications are only logged when Redis is disabled.
	Channel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "stockledger")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "postgres://postgres@localhost:5432/stockledger?sslmode=disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.poll_interval", time.Second)
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("outbox.backoff", time.Minute)
	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("http.read_timeout", 15*time.Second)
	v.SetDefault("http.write_timeout", 30*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.max_body_size", 10<<20)
	v.SetDefault("notify.channel", "stockledger.notifications")
}

// Load reads configuration.
// Priority (highest to lowest):
//  1. Environment variables with the STOCKLEDGER_ prefix
//  2. config.yaml in ., ./config or /etc/stockledger
//  3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/stockledger")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("database.dsn"),
			MaxConns:        v.GetInt32("database.max_conns"),
			MinConns:        v.GetInt32("database.min_conns"),
			MaxConnLifetime: v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime: v.GetDuration("database.max_conn_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Variance: VarianceConfig{
			ThresholdPercent: v.GetString("variance.threshold_percent"),
			ThresholdAmount:  v.GetString("variance.threshold_amount"),
			Rule:             v.GetString("variance.rule"),
		},
		Outbox: OutboxConfig{
			BatchSize:    v.GetInt("outbox.batch_size"),
			PollInterval: v.GetDuration("outbox.poll_interval"),
			MaxRetries:   v.GetInt("outbox.max_retries"),
			Backoff:      v.GetDuration("outbox.backoff"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
		},
		Notify: NotifyConfig{
			Channel: v.GetString("notify.channel"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the process cannot run with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.App.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("app.port must be between 1 and 65535, got %q", c.App.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxConns <= 0 {
		return fmt.Errorf("database.max_conns must be positive")
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) must be between 0 and database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox.batch_size must be positive")
	}
	if c.Outbox.MaxRetries <= 0 {
		return fmt.Errorf("outbox.max_retries must be positive")
	}
	if c.Idempotency.Enabled && c.Idempotency.TTL <= 0 {
		return fmt.Errorf("idempotency.ttl must be positive")
	}
	if _, err := c.Variance.Detector(); err != nil {
		return err
	}
	return nil
}

// Detector builds the variance policy.
func (vc VarianceConfig) Detector() (*variance.Config, error) {
	out := &variance.Config{}

	threshold := func(key, raw string) (*decimal.Decimal, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("variance.%s must be a decimal number: %w", key, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("variance.%s must not be negative", key)
		}
		return &d, nil
	}

	var err error
	if out.ThresholdPercent, err = threshold("threshold_percent", vc.ThresholdPercent); err != nil {
		return nil, err
	}
	if out.ThresholdAmount, err = threshold("threshold_amount", vc.ThresholdAmount); err != nil {
		return nil, err
	}
	if strings.TrimSpace(vc.Rule) != "" {
		rule, err := variance.CompileRule(vc.Rule)
		if err != nil {
			return nil, fmt.Errorf("variance.rule: %w", err)
		}
		out.Rule = rule
	}
	return out, nil
}

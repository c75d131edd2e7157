// Package config loads engine configuration from the environment, the way
// the teacher's gateway service does: koanf for the env provider, go
// playground's validator to enforce required fields after unmarshalling,
// godotenv to autoload a local .env for development.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
)

// Config is deliberately flat: every field maps 1:1 onto one of the
// environment variables named in the spec (DATABASE_URL, GATEWAY_..., etc),
// lowercased for the koanf tag.
type Config struct {
	DatabaseURL string `koanf:"database_url" validate:"required"`

	PaymentGatewayURL       string  `koanf:"payment_gateway_url" validate:"required"`
	PaymentGatewayTimeoutS  float64 `koanf:"payment_gateway_timeout_s"`
	GatewayMaxAttempts      int     `koanf:"gateway_max_attempts"`
	GatewayBackoffBaseS     float64 `koanf:"gateway_backoff_base_s"`
	GatewayBackoffMaxS      float64 `koanf:"gateway_backoff_max_s"`
	GatewayBackoffJitterS   float64 `koanf:"gateway_backoff_jitter_s"`

	WorkerPollIntervalS       float64 `koanf:"worker_poll_interval_s"`
	WorkerProcessingTimeoutS  float64 `koanf:"worker_processing_timeout_s"`
	WorkerCount               int     `koanf:"worker_count"`

	TransactionFeePercent float64 `koanf:"transaction_fee_percent"`

	LogLevel string `koanf:"log_level"`

	ServerPort string `koanf:"server_port"`

	RedisURL string `koanf:"redis_url"`
	KafkaURL string `koanf:"kafka_url"`
}

// defaultsMap mirrors the "Configuration (environment, with defaults)"
// section of the spec.
func defaultsMap() map[string]interface{} {
	return map[string]interface{}{
		"payment_gateway_timeout_s":  2.0,
		"gateway_max_attempts":       3,
		"gateway_backoff_base_s":     1.0,
		"gateway_backoff_max_s":      30.0,
		"gateway_backoff_jitter_s":   0.5,
		"worker_poll_interval_s":     0.5,
		"worker_processing_timeout_s": 30.0,
		"worker_count":               4,
		"transaction_fee_percent":    2.0,
		"log_level":                  "INFO",
		"server_port":                "8080",
	}
}

// Load reads configuration from the environment into Config, applying
// defaults first, and validates required fields are present.
func Load() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultsMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(s)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		logger.Error("could not unmarshal config", "error", err)
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// GatewayTimeout returns the configured gateway call timeout as a Duration.
func (c *Config) GatewayTimeout() time.Duration {
	return durationFromSeconds(c.PaymentGatewayTimeoutS)
}

func (c *Config) PollInterval() time.Duration {
	return durationFromSeconds(c.WorkerPollIntervalS)
}

func (c *Config) ProcessingTimeout() time.Duration {
	return durationFromSeconds(c.WorkerProcessingTimeoutS)
}

func (c *Config) BackoffBase() time.Duration {
	return durationFromSeconds(c.GatewayBackoffBaseS)
}

func (c *Config) BackoffMax() time.Duration {
	return durationFromSeconds(c.GatewayBackoffMaxS)
}

func (c *Config) BackoffJitter() time.Duration {
	return durationFromSeconds(c.GatewayBackoffJitterS)
}

// FeeRate returns the configured fee percentage as a 0..1 fraction.
func (c *Config) FeeRate() float64 {
	return c.TransactionFeePercent / 100
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

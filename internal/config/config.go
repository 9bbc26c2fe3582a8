// Package config loads server configuration from the environment and the
// authenticator registry from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config contains server configuration parameters.
type Config struct {
	Host     string `env:"HOST" envDefault:"0.0.0.0"`
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage backends. At least one must be set; authenticators pick their
	// serializer by the backend name.
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	// EncryptionKey protects opaque tokens on the wire.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
	BcryptCost    int    `env:"BCRYPT_COST" envDefault:"12"`

	SentryDSN   string `env:"SENTRY_DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	AuthenticatorsFile string `env:"AUTHENTICATORS_FILE" envDefault:"authenticators.yaml"`
}

// Load reads configuration from environment variables, honouring a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Port <= 0 {
		errs = append(errs, fmt.Errorf("PORT must be > 0, got %d", c.Port))
	}
	if c.DatabaseURL == "" && c.RedisURL == "" {
		errs = append(errs, errors.New("DATABASE_URL or REDIS_URL is required"))
	}
	if c.EncryptionKey == "" {
		errs = append(errs, errors.New("ENCRYPTION_KEY is required"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost))
	}

	return errors.Join(errs...)
}

// SlogLevel maps the configured log level to its slog equivalent. Unknown
// values fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

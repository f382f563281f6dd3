// Package config loads CLI configuration from the environment.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. LABTREND_LOG_LEVEL.
const EnvPrefix = "LABTREND"

// Config holds CLI settings.
type Config struct {
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error"`
	LogFormat      string `envconfig:"LOG_FORMAT" default:"text" validate:"oneof=text json"`
	CategoriesFile string `envconfig:"CATEGORIES_FILE"`
	ValueFormat    string `envconfig:"VALUE_FORMAT" default:"fixed" validate:"oneof=fixed raw"`
	Sheet          string `envconfig:"SHEET"`
	Delimiter      string `envconfig:"DELIMITER"`
	Password       string `envconfig:"PASSWORD"`
}

// Load reads an optional .env file, then LABTREND_* variables.
// It does not validate: callers apply flag overrides first, then call Validate.
func Load() (*Config, error) {
	// Missing .env is fine
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}
	return &cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	switch c.Delimiter {
	case "", ",", ";", "\t", `\t`, "|":
	default:
		return fmt.Errorf("config validation failed: unsupported delimiter %q", c.Delimiter)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, 0 for auto-detection.
// The two-character form \t names a tab.
func (c *Config) DelimiterRune() rune {
	switch c.Delimiter {
	case "":
		return 0
	case `\t`:
		return '\t'
	default:
		return []rune(c.Delimiter)[0]
	}
}

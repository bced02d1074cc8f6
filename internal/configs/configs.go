/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings are read from operating system environment variables into AppConfig using struct
tags, then validated: the running environment, listen port, allowed origins, WebSocket
limits, rate limits and board retention.
*/
package configs

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Port        int    `env:"PORT" envDefault:"4000"`

	// Security Settings
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// WebSocket Settings
	MaxMessageBytes int64   `env:"MAX_MESSAGE_BYTES" envDefault:"8192"`
	EventRate       float64 `env:"EVENT_RATE" envDefault:"20"`
	EventBurst      int     `env:"EVENT_BURST" envDefault:"40"`
	ConnectRate     float64 `env:"CONNECT_RATE" envDefault:"1"`
	ConnectBurst    int     `env:"CONNECT_BURST" envDefault:"10"`

	// Board Retention Settings
	BoardRetention     time.Duration `env:"BOARD_RETENTION" envDefault:"30m"`
	BoardSweepInterval time.Duration `env:"BOARD_SWEEP_INTERVAL" envDefault:"1m"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// LoadConfig reads and parses the application configuration from environment variables.
// It returns a pointer to the AppConfig struct and any parse or validation error.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate checks ranges that struct tags cannot express.
func (c *AppConfig) validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	if c.MaxMessageBytes <= 0 {
		return fmt.Errorf("MAX_MESSAGE_BYTES must be positive, got %d", c.MaxMessageBytes)
	}

	if c.EventRate <= 0 || c.EventBurst <= 0 {
		return fmt.Errorf("EVENT_RATE and EVENT_BURST must be positive, got %v and %d", c.EventRate, c.EventBurst)
	}

	if c.ConnectRate <= 0 || c.ConnectBurst <= 0 {
		return fmt.Errorf("CONNECT_RATE and CONNECT_BURST must be positive, got %v and %d", c.ConnectRate, c.ConnectBurst)
	}

	if c.BoardRetention < 0 {
		return fmt.Errorf("BOARD_RETENTION must not be negative, got %s", c.BoardRetention)
	}

	if c.BoardRetention > 0 && c.BoardSweepInterval <= 0 {
		return fmt.Errorf("BOARD_SWEEP_INTERVAL must be positive when retention is enabled, got %s", c.BoardSweepInterval)
	}

	if !c.IsDevelopment() && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS environment variable is required in %s environment", c.Environment)
	}

	return nil
}

// Package common provides shared utilities for Kabuban
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Kabuban
type Config struct {
	Environment string        `toml:"environment"`
	Timezone    string        `toml:"timezone"` // calendar-day boundary for snapshots, fixed process-wide
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Notify      NotifyConfig  `toml:"notify"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration
type StorageConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// NotifyConfig holds SMTP configuration for the notification sink.
// An empty Host disables real delivery; notifications are logged instead.
type NotifyConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	From      string `toml:"from"`
	Timeout   string `toml:"timeout"`
	RateLimit int    `toml:"rate_limit"` // messages per second
}

// GetTimeout parses and returns the dispatch timeout duration
func (c *NotifyConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Timezone:    "Asia/Tokyo",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Username:  "root",
			Password:  "root",
			Namespace: "kabuban",
			Database:  "kabuban",
		},
		Notify: NotifyConfig{
			Port:      587,
			Timeout:   "30s",
			RateLimit: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("KABUBAN_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("KABUBAN_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("KABUBAN_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if tz := os.Getenv("KABUBAN_TIMEZONE"); tz != "" {
		config.Timezone = tz
	}

	if level := os.Getenv("KABUBAN_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if addr := os.Getenv("KABUBAN_STORAGE_ADDRESS"); addr != "" {
		config.Storage.Address = addr
	}
	if user := os.Getenv("KABUBAN_STORAGE_USERNAME"); user != "" {
		config.Storage.Username = user
	}
	if pass := os.Getenv("KABUBAN_STORAGE_PASSWORD"); pass != "" {
		config.Storage.Password = pass
	}
	if ns := os.Getenv("KABUBAN_STORAGE_NAMESPACE"); ns != "" {
		config.Storage.Namespace = ns
	}
	if db := os.Getenv("KABUBAN_STORAGE_DATABASE"); db != "" {
		config.Storage.Database = db
	}

	if host := os.Getenv("KABUBAN_SMTP_HOST"); host != "" {
		config.Notify.Host = host
	}
	if port := os.Getenv("KABUBAN_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Notify.Port = p
		}
	}
	if user := os.Getenv("KABUBAN_SMTP_USERNAME"); user != "" {
		config.Notify.Username = user
	}
	if pass := os.Getenv("KABUBAN_SMTP_PASSWORD"); pass != "" {
		config.Notify.Password = pass
	}
	if from := os.Getenv("KABUBAN_SMTP_FROM"); from != "" {
		config.Notify.From = from
	}
}

// Location resolves the configured snapshot timezone. The zone is fixed for
// the life of the process; day-boundary alignment depends on it.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := c.Environment
	return env == "production" || env == "prod"
}

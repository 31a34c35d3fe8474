package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	DefaultAddr        = ":8080"
	DefaultDSN         = "file:data/inkwell.db"
	DefaultCookieName  = "inkwell_session"
	DefaultExpiryHours = 24
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, e.g. ":8080".
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // SQLite file DSN or PostgreSQL DSN/URL.
}

// SessionConfig holds session-cookie settings.
type SessionConfig struct {
	Secret      string `yaml:"secret"`       // HMAC signing secret, required.
	CookieName  string `yaml:"cookie-name"`  // Session cookie name.
	ExpiryHours int    `yaml:"expiry-hours"` // Session lifetime in hours.
	Secure      bool   `yaml:"secure"`       // Set the Secure cookie attribute.
}

// Expiry returns the configured session lifetime.
func (c SessionConfig) Expiry() time.Duration {
	hours := c.ExpiryHours
	if hours <= 0 {
		hours = DefaultExpiryHours
	}
	return time.Duration(hours) * time.Hour
}

// RedisConfig holds optional Redis settings for the ban-list cache.
// An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string `yaml:"addr"`     // host:port, empty to disable.
	Password string `yaml:"password"` // Optional password.
	DB       int    `yaml:"db"`       // Logical database index.
}

// LoggingConfig holds application log settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`       // logrus level name, default "info".
	File       string `yaml:"file"`        // Rotating log file path, empty for stdout only.
	MaxSizeMB  int    `yaml:"max-size-mb"` // Rotation size threshold.
	MaxBackups int    `yaml:"max-backups"` // Rotated files to keep.
	MaxAgeDays int    `yaml:"max-age-days"` // Rotated file retention in days.
}

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ResolveConfigPath picks the config file path from the explicit argument,
// the INKWELL_CONFIG environment variable, or the default location.
func ResolveConfigPath(path string) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	if env := strings.TrimSpace(os.Getenv("INKWELL_CONFIG")); env != "" {
		return env
	}
	return "config.yaml"
}

// LoadConfig reads and validates the YAML config file at path.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
	}
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.Session.Secret) == "" {
		return cfg, fmt.Errorf("config: session.secret is required")
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields.
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = DefaultAddr
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		c.Database.DSN = DefaultDSN
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		c.Session.CookieName = DefaultCookieName
	}
	if c.Session.ExpiryHours <= 0 {
		c.Session.ExpiryHours = DefaultExpiryHours
	}
}

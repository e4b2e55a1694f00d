// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath   = "config.toml"
	DefaultHTTPAddr     = ":8080"
	DefaultPGHost       = "127.0.0.1"
	DefaultPGPort       = 5432
	DefaultPGUser       = "postgres"
	DefaultPGDatabase   = "omnicrm"
	DefaultPGSSLMode    = "disable"
	DefaultSyncSchedule = "@every 10m"
	DefaultFetchTimeout = 30
	DefaultRateLimit    = 5.0
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Auth     AuthConfig     `toml:"auth"`
	Postgres PostgresConfig `toml:"postgres"`
	Sync     SyncConfig     `toml:"sync"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP server listen address.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// AuthConfig holds the JWT secret used to validate API tokens.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// SyncConfig holds the ingestion schedule and per-call limits for platform APIs.
type SyncConfig struct {
	Schedule            string  `toml:"schedule"`
	FetchTimeoutSeconds int     `toml:"fetch_timeout_seconds"`
	RatePerSecond       float64 `toml:"rate_per_second"`
}

// FetchTimeout returns the upper bound for a single external platform call.
func (c SyncConfig) FetchTimeout() time.Duration {
	seconds := c.FetchTimeoutSeconds
	if seconds <= 0 {
		seconds = DefaultFetchTimeout
	}
	return time.Duration(seconds) * time.Second
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: DefaultHTTPAddr,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
		Sync: SyncConfig{
			Schedule:            DefaultSyncSchedule,
			FetchTimeoutSeconds: DefaultFetchTimeout,
			RatePerSecond:       DefaultRateLimit,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

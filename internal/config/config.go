// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Upstream UpstreamConfig `koanf:"upstream"`
	Relay    RelayConfig    `koanf:"relay"`
	Database DatabaseConfig `koanf:"database"`
	Journal  JournalConfig  `koanf:"journal"`
	NATS     NATSConfig     `koanf:"nats"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// UpstreamConfig describes the live session source.
//
// Environment Variables:
//   - VELOREN_SERVER: gateway address (host:port or ws[s]:// URL)
//   - VELOREN_USERNAME / VELOREN_PASSWORD: login credentials
//   - VELOREN_TRUSTED_AUTH_SERVER: the only auth server host accepted
//   - UPSTREAM_TICK_RATE: ticks per second (default: 10)
//   - UPSTREAM_MAX_BACKOFF: cap on reconnect delays, 0 = uncapped (default: 0)
type UpstreamConfig struct {
	Address            string        `koanf:"address"`
	Username           string        `koanf:"username"`
	Password           string        `koanf:"password"`
	TrustedAuthServer  string        `koanf:"trusted_auth_server"`
	TickRate           float64       `koanf:"tick_rate"`
	ConnectBaseDelay   time.Duration `koanf:"connect_base_delay"`
	ReconnectBaseDelay time.Duration `koanf:"reconnect_base_delay"`
	MaxBackoff         time.Duration `koanf:"max_backoff"`
	HandshakeTimeout   time.Duration `koanf:"handshake_timeout"`
	DrainTimeout       time.Duration `koanf:"drain_timeout"`
}

// RelayConfig tunes the ingress queue, the writer and the fan-out.
type RelayConfig struct {
	IngressCapacity   int           `koanf:"ingress_capacity"`
	BroadcastCapacity int           `koanf:"broadcast_capacity"`
	RetryAttempts     int           `koanf:"retry_attempts"`
	RetryDelay        time.Duration `koanf:"retry_delay"`
	StoreTimeout      time.Duration `koanf:"store_timeout"`
	DrainTimeout      time.Duration `koanf:"drain_timeout"`
}

// Supported database drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DatabaseConfig selects and tunes the relational store.
type DatabaseConfig struct {
	Driver    string `koanf:"driver"`     // duckdb, sqlite or postgres
	Path      string `koanf:"path"`       // file path for duckdb and sqlite
	DSN       string `koanf:"dsn"`        // connection string for postgres
	MaxMemory string `koanf:"max_memory"` // duckdb only
	Threads   int    `koanf:"threads"`    // duckdb only, 0 = NumCPU
}

// JournalConfig controls the dead-letter journal.
type JournalConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// NATSConfig controls the event mirror.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`
	TopicPrefix    string `koanf:"topic_prefix"`

	// Circuit breaker around publishes.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// DotEnvFile is loaded into the process environment by Load if present.
var DotEnvFile = ".env"

// Load reads a .env file if one exists, then loads configuration with koanf.
// Variables already set in the environment win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return LoadWithKoanf()
}

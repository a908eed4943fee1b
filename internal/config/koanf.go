// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/heimdall/config.yaml",
	"/etc/heimdall/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Upstream: UpstreamConfig{
			TickRate:           10,
			ConnectBaseDelay:   500 * time.Millisecond,
			ReconnectBaseDelay: 10 * time.Second,
			MaxBackoff:         0, // uncapped
			HandshakeTimeout:   10 * time.Second,
			DrainTimeout:       2 * time.Second,
		},
		Relay: RelayConfig{
			IngressCapacity:   256,
			BroadcastCapacity: 256,
			RetryAttempts:     3,
			RetryDelay:        100 * time.Millisecond,
			StoreTimeout:      5 * time.Second,
			DrainTimeout:      3 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:    DriverDuckDB,
			Path:      "/data/heimdall.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Journal: JournalConfig{
			Enabled: true,
			Path:    "/data/journal",
		},
		NATS: NATSConfig{
			Enabled:            false,
			URL:                "nats://127.0.0.1:4222",
			EmbeddedServer:     true,
			StoreDir:           "/data/nats/jetstream",
			MaxMemory:          256 << 20,
			MaxStore:           1 << 30,
			TopicPrefix:        "heimdall",
			BreakerMaxFailures: 5,
			BreakerTimeout:     30 * time.Second,
		},
		Server: ServerConfig{
			Port:            8000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// VELOREN_SERVER -> upstream.address, DB_DIALECT -> database.driver
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"veloren_server":              "upstream.address",
	"veloren_username":            "upstream.username",
	"veloren_password":            "upstream.password",
	"veloren_trusted_auth_server": "upstream.trusted_auth_server",
	"upstream_tick_rate":          "upstream.tick_rate",
	"upstream_connect_base_delay": "upstream.connect_base_delay",
	"upstream_reconnect_delay":    "upstream.reconnect_base_delay",
	"upstream_max_backoff":        "upstream.max_backoff",
	"upstream_handshake_timeout":  "upstream.handshake_timeout",
	"upstream_drain_timeout":      "upstream.drain_timeout",

	"relay_ingress_capacity":   "relay.ingress_capacity",
	"relay_broadcast_capacity": "relay.broadcast_capacity",
	"relay_retry_attempts":     "relay.retry_attempts",
	"relay_retry_delay":        "relay.retry_delay",
	"relay_store_timeout":      "relay.store_timeout",
	"relay_drain_timeout":      "relay.drain_timeout",

	"db_dialect":        "database.driver",
	"db_driver":         "database.driver",
	"db_path":           "database.path",
	"duckdb_path":       "database.path",
	"db_sqlite_path":    "database.path",
	"db_postgres_dsn":   "database.dsn",
	"database_url":      "database.dsn",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"journal_enabled":   "journal.enabled",
	"journal_path":      "journal.path",
	"journal_in_memory": "journal.in_memory",

	"nats_enabled":              "nats.enabled",
	"nats_url":                  "nats.url",
	"nats_embedded":             "nats.embedded_server",
	"nats_store_dir":            "nats.store_dir",
	"nats_max_memory":           "nats.max_memory",
	"nats_max_store":            "nats.max_store",
	"nats_topic_prefix":         "nats.topic_prefix",
	"nats_breaker_max_failures": "nats.breaker_max_failures",
	"nats_breaker_timeout":      "nats.breaker_timeout",

	"http_port":             "server.port",
	"http_host":             "server.host",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"rate_limit_reqs":    "security.rate_limit_reqs",
	"rate_limit_window":  "security.rate_limit_window",
	"disable_rate_limit": "security.rate_limit_disabled",
	"cors_origins":       "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - VELOREN_SERVER -> upstream.address
//   - DB_DIALECT -> database.driver
//   - HTTP_PORT -> server.port
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

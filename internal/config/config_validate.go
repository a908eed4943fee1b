// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateUpstream,
		c.validateRelay,
		c.validateDatabase,
		c.validateJournal,
		c.validateNATS,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

const maxTickRate = 1000

func (c *Config) validateUpstream() error {
	u := c.Upstream
	if u.Address == "" {
		return fmt.Errorf("VELOREN_SERVER is required")
	}
	if err := validateGatewayAddress(u.Address); err != nil {
		return fmt.Errorf("VELOREN_SERVER is invalid: %w", err)
	}
	if u.Username == "" {
		return fmt.Errorf("VELOREN_USERNAME is required")
	}
	if u.TrustedAuthServer == "" {
		return fmt.Errorf("VELOREN_TRUSTED_AUTH_SERVER is required")
	}
	if u.TickRate <= 0 || u.TickRate > maxTickRate {
		return fmt.Errorf("UPSTREAM_TICK_RATE must be between 0 and %d, got %v", maxTickRate, u.TickRate)
	}
	if u.ConnectBaseDelay < 0 || u.ReconnectBaseDelay < 0 || u.MaxBackoff < 0 {
		return fmt.Errorf("upstream delays must not be negative")
	}
	return nil
}

func (c *Config) validateRelay() error {
	r := c.Relay
	if r.IngressCapacity < 1 {
		return fmt.Errorf("RELAY_INGRESS_CAPACITY must be at least 1")
	}
	if r.BroadcastCapacity < 1 {
		return fmt.Errorf("RELAY_BROADCAST_CAPACITY must be at least 1")
	}
	if r.RetryAttempts < 1 {
		return fmt.Errorf("RELAY_RETRY_ATTEMPTS must be at least 1")
	}
	if r.StoreTimeout <= 0 {
		return fmt.Errorf("RELAY_STORE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB, DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required for the %s driver", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DB_DIALECT=postgres requires DB_POSTGRES_DSN or DATABASE_URL")
		}
	default:
		return fmt.Errorf("unsupported DB_DIALECT %q (want duckdb, sqlite or postgres)", c.Database.Driver)
	}
	return nil
}

func (c *Config) validateJournal() error {
	if c.Journal.Enabled && !c.Journal.InMemory && c.Journal.Path == "" {
		return fmt.Errorf("JOURNAL_PATH is required when the journal is enabled")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	if c.NATS.TopicPrefix == "" || strings.ContainsAny(c.NATS.TopicPrefix, " *>") {
		return fmt.Errorf("NATS_TOPIC_PREFIX must be a non-empty subject token, got %q", c.NATS.TopicPrefix)
	}
	if c.NATS.EmbeddedServer && c.NATS.StoreDir == "" {
		return fmt.Errorf("NATS_STORE_DIR is required for the embedded server")
	}
	if c.NATS.BreakerMaxFailures == 0 {
		return fmt.Errorf("NATS_BREAKER_MAX_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 || c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console")
	}
	return nil
}

// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Upstream.Address = "game.example.net:14004"
	cfg.Upstream.Username = "heimdall"
	cfg.Upstream.Password = "secret"
	cfg.Upstream.TrustedAuthServer = "auth.example.net"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Upstream.TickRate != 10 {
		t.Errorf("Upstream.TickRate = %v, want 10", cfg.Upstream.TickRate)
	}
	if cfg.Upstream.ConnectBaseDelay != 500*time.Millisecond {
		t.Errorf("Upstream.ConnectBaseDelay = %v, want 500ms", cfg.Upstream.ConnectBaseDelay)
	}
	if cfg.Upstream.ReconnectBaseDelay != 10*time.Second {
		t.Errorf("Upstream.ReconnectBaseDelay = %v, want 10s", cfg.Upstream.ReconnectBaseDelay)
	}
	if cfg.Upstream.MaxBackoff != 0 {
		t.Errorf("Upstream.MaxBackoff = %v, want 0 (uncapped)", cfg.Upstream.MaxBackoff)
	}
	if cfg.Relay.IngressCapacity != 256 || cfg.Relay.BroadcastCapacity != 256 {
		t.Errorf("relay capacities = %d/%d, want 256/256", cfg.Relay.IngressCapacity, cfg.Relay.BroadcastCapacity)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Errorf("Database.Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if cfg.NATS.Enabled {
		t.Error("NATS mirror should be disabled by default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing server", mutate: func(c *Config) { c.Upstream.Address = "" }, wantErr: "VELOREN_SERVER is required"},
		{name: "bad server", mutate: func(c *Config) { c.Upstream.Address = "no-port" }, wantErr: "VELOREN_SERVER is invalid"},
		{name: "websocket url", mutate: func(c *Config) { c.Upstream.Address = "wss://gw.example.net/relay" }},
		{name: "ftp url", mutate: func(c *Config) { c.Upstream.Address = "ftp://gw.example.net" }, wantErr: "scheme"},
		{name: "missing username", mutate: func(c *Config) { c.Upstream.Username = "" }, wantErr: "VELOREN_USERNAME"},
		{name: "missing trusted auth", mutate: func(c *Config) { c.Upstream.TrustedAuthServer = "" }, wantErr: "VELOREN_TRUSTED_AUTH_SERVER"},
		{name: "zero tick rate", mutate: func(c *Config) { c.Upstream.TickRate = 0 }, wantErr: "UPSTREAM_TICK_RATE"},
		{name: "negative backoff", mutate: func(c *Config) { c.Upstream.MaxBackoff = -time.Second }, wantErr: "negative"},
		{name: "zero ingress", mutate: func(c *Config) { c.Relay.IngressCapacity = 0 }, wantErr: "RELAY_INGRESS_CAPACITY"},
		{name: "zero retries", mutate: func(c *Config) { c.Relay.RetryAttempts = 0 }, wantErr: "RELAY_RETRY_ATTEMPTS"},
		{name: "unknown driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: "unsupported DB_DIALECT"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Database.Driver = DriverPostgres }, wantErr: "DATABASE_URL"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Database.Driver = DriverSQLite; c.Database.Path = "" }, wantErr: "DB_PATH"},
		{name: "journal without path", mutate: func(c *Config) { c.Journal.Path = "" }, wantErr: "JOURNAL_PATH"},
		{name: "in-memory journal", mutate: func(c *Config) { c.Journal.Path = ""; c.Journal.InMemory = true }},
		{name: "nats bad url", mutate: func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "http://x" }, wantErr: "NATS_URL"},
		{name: "nats wildcard prefix", mutate: func(c *Config) { c.NATS.Enabled = true; c.NATS.TopicPrefix = "a.>" }, wantErr: "NATS_TOPIC_PREFIX"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "HTTP_PORT"},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "LOG_LEVEL"},
		{name: "bad log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "LOG_FORMAT"},
		{name: "rate limit disabled skips checks", mutate: func(c *Config) { c.Security.RateLimitDisabled = true; c.Security.RateLimitReqs = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

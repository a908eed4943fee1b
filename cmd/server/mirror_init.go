// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package main

import (
	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/mirror"
)

// initMirror connects the NATS mirror when enabled. A broker that cannot be
// reached is logged and skipped; the relay and API run without it.
func initMirror(cfg *config.NATSConfig, source mirror.Source) *mirror.Mirror {
	if !cfg.Enabled {
		logging.Info().Msg("NATS mirror disabled (NATS_ENABLED=false)")
		return nil
	}
	m, err := mirror.New(cfg, source)
	if err != nil {
		logging.Warn().Err(err).Str("url", cfg.URL).Msg("Failed to start NATS mirror, continuing without it")
		return nil
	}
	return m
}

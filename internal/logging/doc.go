// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package logging provides the process-wide zerolog logger for Heimdall.
//
// JSON output is the default; console output is meant for development.
// Components derive a child logger with WithComponent so every line carries
// a "component" field (upstream, relay, fanout, api, mirror, journal).
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	log := logging.WithComponent("upstream")
//	log.Error().Err(err).Uint32("retry", n).Msg("failed to connect")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated chain
// emits nothing.
//
// The slog adapter exists for sutureslog, which only accepts *slog.Logger.
package logging

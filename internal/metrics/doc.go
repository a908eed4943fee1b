// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

/*
Package metrics provides Prometheus collectors for the relay.

Collectors are registered with the default registry through promauto and are
exposed at /metrics by the API router.

# Available Metrics

Upstream:
  - upstream_connection_state: current connector state (gauge)
  - upstream_connect_attempts_total: connection attempts (counter)
    Labels: result
  - upstream_tick_errors_total: failed ticks (counter)
  - upstream_retry_count: consecutive failures (gauge)

Relay:
  - relay_ingress_depth: queued events (gauge)
  - relay_events_total: applied events (counter)
    Labels: kind, outcome
  - relay_store_duration_seconds: store latency (histogram)
    Labels: operation
  - presence_online_players: online players (gauge)

Fan-out and mirror:
  - fanout_subscribers, fanout_published_total, fanout_lagged_total
  - mirror_published_total (Labels: result)
  - circuit_breaker_state (Labels: name)

Journal:
  - journal_entries_total: dead-letter entries held (gauge)
*/
package metrics

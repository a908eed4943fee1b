// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Connection states reported by UpstreamConnectionState.
const (
	StateDisconnected float64 = 0
	StateConnecting   float64 = 1
	StateConnected    float64 = 2
	StateReconnecting float64 = 3
)

var (
	// Upstream connector
	UpstreamConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_connection_state",
			Help: "Upstream connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)",
		},
	)

	UpstreamConnectAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_connect_attempts_total",
			Help: "Total number of upstream connection attempts",
		},
		[]string{"result"}, // "success", "failure"
	)

	UpstreamTickErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_tick_errors_total",
			Help: "Total number of failed session ticks",
		},
	)

	UpstreamRetryCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "upstream_retry_count",
			Help: "Current consecutive upstream failure count",
		},
	)

	UpstreamRawEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_raw_events_total",
			Help: "Raw session events by normalization outcome",
		},
		[]string{"outcome"}, // "accepted", "dropped"
	)

	// Relay writer
	RelayIngressDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_ingress_depth",
			Help: "Events waiting in the ingress queue",
		},
	)

	RelayEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_events_total",
			Help: "Events applied by the persistence writer",
		},
		[]string{"kind", "outcome"}, // kind: message|activity, outcome: persisted|journaled|dropped
	)

	RelayStoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_store_duration_seconds",
			Help:    "Duration of store operations issued by the writer",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	RelayStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_store_errors_total",
			Help: "Failed store operations issued by the writer, including retried attempts",
		},
		[]string{"operation"},
	)

	PresenceOnlinePlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "presence_online_players",
			Help: "Players currently believed online",
		},
	)

	// Broadcast fan-out
	FanoutSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanout_subscribers",
			Help: "Live fan-out subscribers",
		},
	)

	FanoutPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_published_total",
			Help: "Envelopes published to the fan-out",
		},
	)

	FanoutLagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanout_lagged_total",
			Help: "Envelopes skipped by subscribers that fell behind",
		},
	)

	PlaytimeAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playtime_anomalies_total",
			Help: "Out-of-order activity records seen while reconstructing playtime",
		},
	)

	// Mirror
	MirrorPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_published_total",
			Help: "Envelopes mirrored to NATS",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// Dead-letter journal
	JournalEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "journal_entries_total",
			Help: "Entries currently held in the dead-letter journal",
		},
	)

	JournalRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_recorded_total",
			Help: "Entries written to the dead-letter journal",
		},
		[]string{"stage"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests being processed",
		},
	)

	StreamConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_connections",
			Help: "Open live event streams",
		},
		[]string{"transport"}, // "sse", "websocket"
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordConnectAttempt counts an upstream connection attempt.
func RecordConnectAttempt(err error) {
	if err != nil {
		UpstreamConnectAttempts.WithLabelValues("failure").Inc()
		return
	}
	UpstreamConnectAttempts.WithLabelValues("success").Inc()
}

// RecordStoreOperation records a store call made by the writer.
func RecordStoreOperation(operation string, duration time.Duration, err error) {
	RelayStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		RelayStoreErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRelayEvent counts an applied event.
func RecordRelayEvent(kind, outcome string) {
	RelayEvents.WithLabelValues(kind, outcome).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordMirrorPublish counts a mirror publish outcome.
func RecordMirrorPublish(result string) {
	MirrorPublished.WithLabelValues(result).Inc()
}

// RecordBreakerTransition updates the breaker gauges after a state change.
func RecordBreakerTransition(name, from, to string, state float64) {
	CircuitBreakerState.WithLabelValues(name).Set(state)
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

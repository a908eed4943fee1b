// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"github.com/tomtom215/heimdall/internal/journal"
	"github.com/tomtom215/heimdall/internal/playtime"
	"github.com/tomtom215/heimdall/internal/upstream"
)

// PlaytimeResponse is the data of GET /api/v1/players/{id}/playtime.
type PlaytimeResponse struct {
	PlayerID        int64              `json:"player_id"`
	Alias           string             `json:"alias"`
	PlayTimeSeconds int64              `json:"play_time_seconds"`
	Online          bool               `json:"online"`
	Anomalies       []playtime.Anomaly `json:"anomalies"`
}

// PresenceResponse is the data of GET /api/v1/presence.
type PresenceResponse struct {
	Online []int64 `json:"online"`
	Count  int     `json:"count"`
}

// JournalResponse is the data of GET /api/v1/journal.
type JournalResponse struct {
	Entries []journal.Entry `json:"entries"`
	Total   int             `json:"total"`
}

// HealthStatus is the data of the health endpoints.
type HealthStatus struct {
	Status            string           `json:"status"`
	Version           string           `json:"version"`
	Uptime            float64          `json:"uptime_seconds"`
	DatabaseConnected bool             `json:"database_connected"`
	Upstream          *upstream.Status `json:"upstream,omitempty"`
	WebSocketClients  int              `json:"websocket_clients"`
}

// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/heimdall/internal/models"
	"github.com/tomtom215/heimdall/internal/upstream"
)

const readinessPingTimeout = 2 * time.Second

// HealthLive returns 200 while the process is alive, regardless of
// dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	}, 0)
}

// HealthReady returns 200 only when the store answers a ping and the
// upstream session is connected, and 503 otherwise. The body always carries
// the full picture.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessPingTimeout)
	defer cancel()

	health := HealthStatus{
		Version:           h.version,
		Uptime:            time.Since(h.startTime).Seconds(),
		DatabaseConnected: h.store != nil && h.store.Ping(ctx) == nil,
	}
	if h.wsHub != nil {
		health.WebSocketClients = h.wsHub.GetClientCount()
	}

	upstreamReady := false
	if h.upstream != nil {
		st := h.upstream()
		health.Upstream = &st
		upstreamReady = st.State == upstream.StateConnected
	}

	ready := health.DatabaseConnected && upstreamReady
	statusCode := http.StatusOK
	health.Status = "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		health.Status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: health.Status,
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
		},
	})
}

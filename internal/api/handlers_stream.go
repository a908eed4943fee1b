// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/heimdall/internal/broadcast"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	ws "github.com/tomtom215/heimdall/internal/websocket"
)

// Events streams envelopes as server-sent events until the client leaves or
// the fan-out closes. Each event is named after the envelope type and carries
// the envelope data as JSON. Skipped envelopes are reported with a "lagged"
// event, and idle streams get a comment line every keep-alive period.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeStreamUnavailable, "live stream is not configured", nil)
		return
	}
	rc := http.NewResponseController(w)

	sub := h.stream.Subscribe()
	defer sub.Unsubscribe()

	metrics.StreamConnections.WithLabelValues("sse").Inc()
	defer metrics.StreamConnections.WithLabelValues("sse").Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Event stream not supported by response writer")
		return
	}

	log := logging.Ctx(r.Context())
	log.Debug().Msg("SSE client connected")
	defer log.Debug().Msg("SSE client disconnected")

	var lastDropped uint64
	for {
		waitCtx, cancel := context.WithTimeout(r.Context(), h.sseKeepAlive)
		env, err := sub.Recv(waitCtx)
		cancel()

		switch {
		case err == nil:
		case errors.Is(err, broadcast.ErrClosed):
			return
		case errors.Is(err, context.DeadlineExceeded) && r.Context().Err() == nil:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			continue
		default:
			return
		}

		if dropped := sub.Dropped(); dropped > lastDropped {
			if err := writeSSE(w, ws.MessageTypeLagged, ws.LagNotice{Missed: dropped - lastDropped}); err != nil {
				return
			}
			lastDropped = dropped
		}
		if err := writeSSE(w, env.Type(), env.Data()); err != nil {
			log.Debug().Err(err).Msg("SSE write failed")
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, event string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err
}

// WebSocket upgrades the connection and hands it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeStreamUnavailable, "live stream is not configured", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	if _, err := h.wsHub.ServeConn(conn); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("WebSocket connection refused")
	}
}

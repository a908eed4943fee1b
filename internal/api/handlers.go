// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"context"
	"net/http"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/tomtom215/heimdall/internal/broadcast"
	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/database"
	"github.com/tomtom215/heimdall/internal/journal"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/models"
	"github.com/tomtom215/heimdall/internal/playtime"
	"github.com/tomtom215/heimdall/internal/presence"
	"github.com/tomtom215/heimdall/internal/upstream"
	ws "github.com/tomtom215/heimdall/internal/websocket"
)

// Store is the read side of the relational store.
type Store interface {
	GetPlayer(ctx context.Context, id int64) (*models.Player, error)
	SearchPlayers(ctx context.Context, substr string) ([]models.Player, error)
	MessagesBefore(ctx context.Context, before *int64) ([]models.Message, error)
	QueryMessages(ctx context.Context, f database.MessageFilter) ([]models.Message, error)
	Ping(ctx context.Context) error
}

// PlaytimeQuerier reconstructs a player's online duration.
type PlaytimeQuerier interface {
	ForPlayer(ctx context.Context, playerID int64) (playtime.Result, error)
}

// StreamSource is the broadcast fan-out live clients subscribe to.
type StreamSource interface {
	Subscribe() *broadcast.Subscription[models.Envelope]
}

// DeadLetters is the dead-letter journal as seen by operators.
type DeadLetters interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// Handler serves every API route.
type Handler struct {
	store     Store
	presence  presence.Reader
	playtime  PlaytimeQuerier
	config    *config.Config
	startTime time.Time
	version   string

	// Optional, set after construction.
	stream   StreamSource
	wsHub    *ws.Hub
	journal  DeadLetters
	upstream func() upstream.Status

	upgrader     gws.Upgrader
	sseKeepAlive time.Duration
}

// NewHandler creates a handler over the store, the presence tracker and the
// playtime service. Streaming, the journal and upstream status are wired with
// the Set methods; routes whose dependency is missing answer 503.
//
// Example:
//
//	handler := api.NewHandler(db, tracker, playtime.NewService(db), cfg)
//	handler.SetStream(fanout, hub)
//	router := api.NewRouter(handler, api.NewChiMiddlewareFromConfig(&cfg.Security))
//	http.ListenAndServe(":8080", router.SetupChi())
func NewHandler(store Store, tracker presence.Reader, pt PlaytimeQuerier, cfg *config.Config) *Handler {
	h := &Handler{
		store:        store,
		presence:     tracker,
		playtime:     pt,
		config:       cfg,
		startTime:    time.Now(),
		version:      "dev",
		sseKeepAlive: 15 * time.Second,
	}
	h.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkWebSocketOrigin,
	}
	return h
}

// SetStream wires the broadcast fan-out used by the SSE route and the hub
// that owns websocket clients.
func (h *Handler) SetStream(source StreamSource, hub *ws.Hub) {
	h.stream = source
	h.wsHub = hub
}

// SetJournal wires the dead-letter journal. Leave unset when it is disabled.
func (h *Handler) SetJournal(j DeadLetters) {
	h.journal = j
}

// SetUpstreamStatus wires the readiness check to the connection manager.
func (h *Handler) SetUpstreamStatus(fn func() upstream.Status) {
	h.upstream = fn
}

// SetVersion sets the version reported by the health endpoints.
func (h *Handler) SetVersion(v string) {
	if v != "" {
		h.version = v
	}
}

// checkWebSocketOrigin accepts browsers from the configured CORS origins.
// A missing Origin header is rejected; browsers always send it.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

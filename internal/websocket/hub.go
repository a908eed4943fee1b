// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package websocket

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/heimdall/internal/broadcast"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
)

// ErrHubClosed is returned when a connection arrives after shutdown.
var ErrHubClosed = errors.New("websocket hub closed")

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeMessage  = models.EnvelopeTypeMessage
	MessageTypeActivity = models.EnvelopeTypeActivity
	MessageTypeLagged   = "lagged"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

// Message is a control frame exchanged with a client. Envelopes share its
// {"type","data"} shape.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LagNotice tells a client how many envelopes it skipped.
type LagNotice struct {
	Missed uint64 `json:"missed"`
}

// Source is the fan-out clients subscribe to.
type Source interface {
	Subscribe() *broadcast.Subscription[models.Envelope]
}

// Hub maintains the set of active clients.
type Hub struct {
	source Source
	log    zerolog.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
	closed  bool
}

// NewHub creates a hub whose clients subscribe to source.
func NewHub(source Source) *Hub {
	return &Hub{
		source:  source,
		log:     logging.WithComponent("websocket-hub"),
		clients: make(map[*Client]bool),
	}
}

// ServeConn subscribes a freshly upgraded connection and starts its pumps.
// The connection is closed if the hub has already shut down.
func (h *Hub) ServeConn(conn *websocket.Conn) (*Client, error) {
	c := NewClient(h, conn)
	if !h.register(c) {
		c.sub.Unsubscribe()
		_ = conn.Close()
		return nil, ErrHubClosed
	}
	c.Start()
	return c, nil
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	metrics.StreamConnections.WithLabelValues("websocket").Inc()
	h.log.Info().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("websocket client connected")
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	metrics.StreamConnections.WithLabelValues("websocket").Dec()
	h.log.Info().Uint64("client_id", c.id).Int("total_clients", len(h.clients)).Msg("websocket client disconnected")
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve blocks until ctx ends, then closes every client and refuses new
// ones. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

// String implements fmt.Stringer for suture logging.
func (h *Hub) String() string {
	return "websocket-hub"
}

// logGracefulShutdown closes all clients and logs without an error field;
// cancellation is the expected way for the hub to stop.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.closeAllClients()
	h.log.Info().
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAllClients cancels every client in id order. The clients' writePumps
// send the close frame and unregister themselves.
func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	for _, c := range clients {
		c.Close()
	}
	return len(clients)
}

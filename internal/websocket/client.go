// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package websocket

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/heimdall/internal/broadcast"
	"github.com/tomtom215/heimdall/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024 // clients only send control frames

	controlBuffer = 8
)

// clientIDCounter gives clients a stable order for shutdown and logs.
var clientIDCounter atomic.Uint64

// Client is a middleman between one websocket connection and the fan-out.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	sub     *broadcast.Subscription[models.Envelope]
	control chan Message

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewClient subscribes a client to the hub's source. Call Start to run it.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		sub:     hub.source.Subscribe(),
		control: make(chan Message, controlBuffer),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// Close asks the client to send a close frame and disconnect.
func (c *Client) Close() {
	c.cancel()
}

// Done is closed once the client has fully disconnected.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	envelopes := make(chan models.Envelope)
	go c.receive(envelopes)
	go c.writePump(envelopes)
	go c.readPump()
}

// receive moves envelopes from the subscription to the writePump. It closes
// out when the fan-out closes or the client is cancelled.
func (c *Client) receive(out chan<- models.Envelope) {
	defer close(out)
	for {
		env, err := c.sub.Recv(c.ctx)
		if err != nil {
			if errors.Is(err, broadcast.ErrClosed) {
				c.hub.log.Debug().Uint64("client_id", c.id).Msg("fan-out closed, ending websocket stream")
			}
			return
		}
		select {
		case out <- env:
		case <-c.ctx.Done():
			return
		}
	}
}

// readPump answers pings and detects peer disconnect.
func (c *Client) readPump() {
	defer c.cancel()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.hub.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.hub.log.Debug().Err(err).Uint64("client_id", c.id).Msg("ignoring malformed client frame")
			continue
		}
		if msg.Type == MessageTypePing {
			select {
			case c.control <- Message{Type: MessageTypePong}:
			default:
			}
		}
	}
}

// writePump is the connection's only writer.
func (c *Client) writePump(envelopes <-chan models.Envelope) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.cancel()
		c.sub.Unsubscribe()
		_ = c.conn.Close()
		c.hub.unregister(c)
		close(c.done)
	}()

	var lastDropped uint64
	for {
		select {
		case env, ok := <-envelopes:
			if !ok {
				c.writeClose()
				return
			}
			if dropped := c.sub.Dropped(); dropped > lastDropped {
				notice := Message{Type: MessageTypeLagged, Data: LagNotice{Missed: dropped - lastDropped}}
				lastDropped = dropped
				if !c.writeJSON(notice) {
					return
				}
			}
			if !c.writeJSON(env) {
				return
			}

		case msg := <-c.control:
			if !c.writeJSON(msg) {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.writeClose()
			return
		}
	}
}

func (c *Client) writeJSON(v interface{}) bool {
	b, err := json.Marshal(v)
	if err != nil {
		c.hub.log.Error().Err(err).Msg("failed to encode websocket frame")
		return true
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		c.hub.log.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write websocket frame")
		return false
	}
	return true
}

func (c *Client) writeClose() {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
}

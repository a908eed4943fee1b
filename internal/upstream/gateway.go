// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/heimdall/internal/logging"
)

const (
	gatewayPath    = "/session"
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Frame types exchanged with the gateway.
const (
	frameLogin          = "login"
	frameAuthServer     = "auth_server"
	frameWelcome        = "welcome"
	frameError          = "error"
	frameChat           = "chat"
	frameOnline         = "online"
	frameOffline        = "offline"
	frameRosterAdd      = "roster_add"
	frameRosterRemove   = "roster_remove"
	frameNotice         = "notice"
	frameDisconnectSoon = "disconnect_soon"
)

type rosterEntry struct {
	UID   ParticipantID `json:"uid"`
	Alias string        `json:"alias"`
	UUID  uuid.UUID     `json:"uuid"`
}

type frame struct {
	Type     string        `json:"type"`
	Username string        `json:"username,omitempty"`
	Password string        `json:"password,omitempty"`
	Host     string        `json:"host,omitempty"`
	Version  string        `json:"version,omitempty"`
	Message  string        `json:"message,omitempty"`
	Roster   []rosterEntry `json:"roster,omitempty"`
	Scope    ChatScope     `json:"scope,omitempty"`
	UID      ParticipantID `json:"uid,omitempty"`
	Alias    string        `json:"alias,omitempty"`
	UUID     uuid.UUID     `json:"uuid,omitempty"`
	Text     string        `json:"text,omitempty"`
}

// GatewayDialer opens sessions against a JSON-over-websocket gateway that
// fronts the game server.
type GatewayDialer struct {
	// HandshakeTimeout bounds the websocket upgrade and the login exchange.
	HandshakeTimeout time.Duration
	// ClientVersion is logged when the gateway rejects the login.
	ClientVersion string
}

// NewGatewayDialer returns a dialer with a 10 second handshake timeout.
func NewGatewayDialer(clientVersion string) *GatewayDialer {
	return &GatewayDialer{HandshakeTimeout: 10 * time.Second, ClientVersion: clientVersion}
}

// Dial connects, logs in and waits for the welcome frame carrying the
// initial roster.
func (d *GatewayDialer) Dial(ctx context.Context, address string, creds Credentials, trust TrustPredicate) (Session, error) {
	wsURL, err := gatewayURL(address)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: d.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("gateway dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("gateway dial: %w", err)
	}

	roster, version, err := d.handshake(conn, creds, trust)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := newGatewaySession(conn, roster)
	s.log.Debug().Str("server_version", version).Int("roster", len(roster)).Msg("Logged in to gateway")
	return s, nil
}

func (d *GatewayDialer) handshake(conn *websocket.Conn, creds Credentials, trust TrustPredicate) (Roster, string, error) {
	deadline := time.Now().Add(d.HandshakeTimeout)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := writeFrame(conn, frame{Type: frameLogin, Username: creds.Username, Password: creds.Password}); err != nil {
		return nil, "", fmt.Errorf("send login: %w", err)
	}

	for {
		f, err := readFrame(conn)
		if err != nil {
			return nil, "", fmt.Errorf("read handshake: %w", err)
		}

		switch f.Type {
		case frameAuthServer:
			if trust == nil || !trust(f.Host) {
				return nil, "", fmt.Errorf("%w: %q", ErrUntrustedAuthServer, f.Host)
			}
		case frameWelcome:
			roster := make(Roster, len(f.Roster))
			for _, e := range f.Roster {
				roster[e.UID] = RosterInfo{Alias: e.Alias, ExternalID: e.UUID}
			}
			_ = conn.SetReadDeadline(time.Time{})
			return roster, f.Version, nil
		case frameError:
			if f.Version != "" {
				logging.Error().
					Str("client_version", d.ClientVersion).
					Str("server_version", f.Version).
					Msg("Gateway login failed, likely a version mismatch")
			}
			return nil, "", fmt.Errorf("%w: %s", ErrLoginRejected, f.Message)
		default:
			return nil, "", fmt.Errorf("unexpected handshake frame %q", f.Type)
		}
	}
}

// gatewayURL turns an address into the session endpoint URL. A bare
// host:port is treated as plain ws.
func gatewayURL(address string) (string, error) {
	if !strings.Contains(address, "://") {
		address = "ws://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("parse gateway address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + gatewayPath
	return u.String(), nil
}

// gatewaySession buffers frames read in the background until the next Tick.
type gatewaySession struct {
	conn    *websocket.Conn
	log     zerolog.Logger
	writeMu sync.Mutex

	mu       sync.Mutex
	pending  []frame
	readErr  error
	roster   Roster
	removals []ParticipantID

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newGatewaySession(conn *websocket.Conn, roster Roster) *gatewaySession {
	s := &gatewaySession{
		conn:   conn,
		log:    logging.WithComponent("gateway"),
		roster: roster,
		done:   make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop()
	go s.pingLoop()
	return s
}

func (s *gatewaySession) readLoop() {
	defer s.wg.Done()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.mu.Lock()
			s.readErr = err
			s.mu.Unlock()
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.log.Warn().Err(err).Msg("Dropping malformed gateway frame")
			continue
		}

		s.mu.Lock()
		s.pending = append(s.pending, f)
		s.mu.Unlock()
	}
}

func (s *gatewaySession) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.writeMu.Lock()
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// Tick hands back every frame received since the previous call.
func (s *gatewaySession) Tick(ctx context.Context, _ time.Duration) ([]RawEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.readErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionClosed, s.readErr)
	}

	frames := s.pending
	s.pending = nil

	events := make([]RawEvent, 0, len(frames))
	for _, f := range frames {
		switch f.Type {
		case frameChat:
			events = append(events, ChatEvent{Scope: f.Scope, Sender: f.UID, Text: f.Text})
		case frameOnline:
			events = append(events, PresenceEvent{Participant: f.UID, Online: true})
		case frameOffline:
			events = append(events, PresenceEvent{Participant: f.UID, Online: false})
		case frameRosterAdd:
			s.roster[f.UID] = RosterInfo{Alias: f.Alias, ExternalID: f.UUID}
		case frameRosterRemove:
			s.removals = append(s.removals, f.UID)
		case frameNotice:
			events = append(events, NoticeEvent{Text: f.Text})
		case frameDisconnectSoon:
			events = append(events, DisconnectNotice{})
		default:
			s.log.Debug().Str("type", f.Type).Msg("Ignoring unknown gateway frame")
		}
	}
	return events, nil
}

func (s *gatewaySession) Roster() Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Clone()
}

// Cleanup applies roster removals received during the last tick.
func (s *gatewaySession) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.removals {
		delete(s.roster, id)
	}
	s.removals = s.removals[:0]
}

func (s *gatewaySession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.writeMu.Lock()
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		err = s.conn.Close()
		s.wg.Wait()
	})
	return err
}

func writeFrame(conn *websocket.Conn, f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func readFrame(conn *websocket.Conn) (frame, error) {
	var f frame
	_, data, err := conn.ReadMessage()
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode gateway frame: %w", err)
	}
	return f, nil
}

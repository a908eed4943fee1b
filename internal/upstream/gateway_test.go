// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package upstream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/heimdall/internal/models"
)

var testUpgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// gatewayServer runs script after a successful login exchange.
func gatewayServer(t *testing.T, authHost string, reject string, script func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != gatewayPath {
			http.NotFound(w, r)
			return
		}
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var login frame
		if err := conn.ReadJSON(&login); err != nil || login.Type != frameLogin {
			return
		}
		if err := conn.WriteJSON(frame{Type: frameAuthServer, Host: authHost}); err != nil {
			return
		}
		if reject != "" {
			_ = conn.WriteJSON(frame{Type: frameError, Message: reject, Version: "server-2"})
			return
		}
		welcome := frame{Type: frameWelcome, Version: "server-1", Roster: []rosterEntry{
			{UID: 1, Alias: "alice", UUID: aliceID},
		}}
		if err := conn.WriteJSON(welcome); err != nil {
			return
		}
		script(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsAddress(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGatewayURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "game.example:14004", want: "ws://game.example:14004/session"},
		{in: "http://game.example", want: "ws://game.example/session"},
		{in: "https://game.example/relay/", want: "wss://game.example/relay/session"},
		{in: "wss://game.example", want: "wss://game.example/session"},
		{in: "ftp://game.example", wantErr: true},
	}
	for _, tt := range tests {
		got, err := gatewayURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("gatewayURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("gatewayURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGatewayDialer_SessionFlow(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	srv := gatewayServer(t, "auth.example", "", func(conn *websocket.Conn) {
		frames := []frame{
			{Type: frameRosterAdd, UID: 2, Alias: "bob", UUID: bobID},
			{Type: frameChat, Scope: ScopeWorld, UID: 2, Text: "bob: hi"},
			{Type: frameNotice, Text: "maintenance soon"},
			{Type: frameOffline, UID: 1},
			{Type: frameRosterRemove, UID: 1},
		}
		for _, f := range frames {
			if err := conn.WriteJSON(f); err != nil {
				return
			}
		}
		<-release
	})

	d := NewGatewayDialer("test")
	sess, err := d.Dial(context.Background(), wsAddress(srv), Credentials{Username: "relay", Password: "pw"}, TrustHost("auth.example"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer sess.Close()

	if r := sess.Roster(); len(r) != 1 || r[1].Alias != "alice" {
		t.Fatalf("initial roster = %v", r)
	}

	var got []models.Event
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		raw, err := sess.Tick(context.Background(), 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Tick() error = %v", err)
		}
		roster := sess.Roster()
		for _, ev := range raw {
			if n, ok := Normalize(ev, roster, time.Now()); ok {
				got = append(got, n)
			}
		}
		sess.Cleanup()
		if len(got) == 2 && len(sess.Roster()) == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(got) != 2 {
		t.Fatalf("normalized %d events, want 2: %+v", len(got), got)
	}
	if got[0].PlayerAlias != "bob" {
		t.Errorf("chat sender = %q, want bob", got[0].PlayerAlias)
	}
	if msg, ok := got[0].Payload.(models.MessagePayload); !ok || msg.Content != "hi" {
		t.Errorf("chat payload = %#v", got[0].Payload)
	}
	if got[1].PlayerAlias != "alice" {
		t.Errorf("offline player = %q, want alice (resolved before roster removal)", got[1].PlayerAlias)
	}
	if r := sess.Roster(); len(r) != 1 || r[2].Alias != "bob" {
		t.Errorf("final roster = %v, want only bob", r)
	}
}

func TestGatewayDialer_UntrustedAuthServer(t *testing.T) {
	srv := gatewayServer(t, "evil.example", "", func(*websocket.Conn) {})

	_, err := NewGatewayDialer("test").Dial(context.Background(), wsAddress(srv), Credentials{}, TrustHost("auth.example"))
	if !errors.Is(err, ErrUntrustedAuthServer) {
		t.Errorf("Dial() error = %v, want ErrUntrustedAuthServer", err)
	}
}

func TestGatewayDialer_LoginRejected(t *testing.T) {
	srv := gatewayServer(t, "auth.example", "version mismatch", func(*websocket.Conn) {})

	_, err := NewGatewayDialer("test").Dial(context.Background(), wsAddress(srv), Credentials{}, TrustHost("auth.example"))
	if !errors.Is(err, ErrLoginRejected) {
		t.Errorf("Dial() error = %v, want ErrLoginRejected", err)
	}
}

func TestGatewaySession_TickFailsAfterDisconnect(t *testing.T) {
	srv := gatewayServer(t, "auth.example", "", func(*websocket.Conn) {})

	sess, err := NewGatewayDialer("test").Dial(context.Background(), wsAddress(srv), Credentials{}, TrustHost("auth.example"))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer sess.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := sess.Tick(context.Background(), 0); err != nil {
			if !errors.Is(err, ErrSessionClosed) {
				t.Fatalf("Tick() error = %v, want ErrSessionClosed", err)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Tick() never reported the lost connection")
}

func TestGatewayDialer_WithManager(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	srv := gatewayServer(t, "auth.example", "", func(conn *websocket.Conn) {
		_ = conn.WriteJSON(frame{Type: frameChat, Scope: ScopeFaction, UID: 1, Text: "alice: go"})
		<-release
	})

	cfg := fastConfig()
	cfg.Address = wsAddress(srv)
	cfg.Trust = TrustHost("auth.example")
	m := NewManager(cfg, NewGatewayDialer("test"))
	out := make(chan models.Event, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := runManager(ctx, m, out)

	got := collect(t, out, 2)
	if !activity(t, got[0]) {
		t.Error("first event should seed alice online")
	}
	if msg, ok := got[1].Payload.(models.MessagePayload); !ok || msg.Kind != models.MessageKindFaction || msg.Content != "go" {
		t.Errorf("second event = %#v", got[1].Payload)
	}

	cancel()
	_ = waitDone(t, done)
	if drained := collect(t, out, 1); activity(t, drained[0]) {
		t.Error("drain should report alice offline")
	}
}

// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package upstream

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUntrustedAuthServer is returned by a Dialer when the session names an
	// authentication endpoint the trust predicate rejects.
	ErrUntrustedAuthServer = errors.New("upstream: untrusted auth server")

	// ErrLoginRejected is returned when the upstream refuses the login.
	ErrLoginRejected = errors.New("upstream: login rejected")

	// ErrSessionClosed is returned by Tick after the session has been lost.
	ErrSessionClosed = errors.New("upstream: session closed")
)

// ParticipantID identifies a participant within one upstream session. It is
// not stable across sessions; the roster maps it to the stable external id.
type ParticipantID uint64

// RosterInfo is what the session knows about a participant.
type RosterInfo struct {
	Alias      string
	ExternalID uuid.UUID
}

// Roster is the session's current participant view.
type Roster map[ParticipantID]RosterInfo

// Clone returns an independent copy.
func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Credentials are presented when opening a session.
type Credentials struct {
	Username string
	Password string
}

// TrustPredicate decides whether an auxiliary authentication endpoint named
// by the upstream may be used.
type TrustPredicate func(host string) bool

// TrustHost returns a predicate accepting exactly host.
func TrustHost(host string) TrustPredicate {
	return func(candidate string) bool { return candidate == host }
}

// Session is a live upstream connection. Tick, Roster, Cleanup and Close are
// called from a single goroutine.
type Session interface {
	// Tick advances the session by dt and returns the raw events received
	// since the previous tick.
	Tick(ctx context.Context, dt time.Duration) ([]RawEvent, error)
	// Roster returns the participants currently present.
	Roster() Roster
	// Cleanup finalizes per-tick bookkeeping such as deferred roster removals.
	Cleanup()
	Close() error
}

// Dialer opens upstream sessions.
type Dialer interface {
	Dial(ctx context.Context, address string, creds Credentials, trust TrustPredicate) (Session, error)
}

// ChatScope is the broadcast scope of a chat line as reported upstream.
type ChatScope string

// Scopes seen upstream. Only world, tell and faction are relayed.
const (
	ScopeWorld   ChatScope = "world"
	ScopeTell    ChatScope = "tell"
	ScopeFaction ChatScope = "faction"
	ScopeSay     ChatScope = "say"
	ScopeGroup   ChatScope = "group"
	ScopeRegion  ChatScope = "region"
	ScopeCommand ChatScope = "command"
)

// RawEvent is the closed set of events a Session yields.
type RawEvent interface {
	isRawEvent()
}

// ChatEvent is a chat line sent by a participant.
type ChatEvent struct {
	Scope  ChatScope
	Sender ParticipantID
	Text   string
}

// PresenceEvent reports a participant coming online or going offline.
type PresenceEvent struct {
	Participant ParticipantID
	Online      bool
}

// NoticeEvent is a server notification with no relay meaning.
type NoticeEvent struct {
	Text string
}

// DisconnectNotice warns that the upstream will drop the session soon.
type DisconnectNotice struct{}

func (ChatEvent) isRawEvent()        {}
func (PresenceEvent) isRawEvent()    {}
func (NoticeEvent) isRawEvent()      {}
func (DisconnectNotice) isRawEvent() {}

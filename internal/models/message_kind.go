// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package models

import (
	"errors"
	"fmt"
)

// ErrUnknownMessageKind is returned when a textual kind tag is not one of the
// canonical chat scopes.
var ErrUnknownMessageKind = errors.New("unknown message kind")

// MessageKind is the closed set of chat scopes that are persisted.
type MessageKind uint8

const (
	MessageKindWorld MessageKind = iota + 1
	MessageKindTell
	MessageKindFaction
)

// MessageKinds lists every canonical kind in tag order.
var MessageKinds = []MessageKind{MessageKindWorld, MessageKindTell, MessageKindFaction}

// String returns the persisted tag ("World", "Tell", "Faction").
func (k MessageKind) String() string {
	switch k {
	case MessageKindWorld:
		return "World"
	case MessageKindTell:
		return "Tell"
	case MessageKindFaction:
		return "Faction"
	default:
		return fmt.Sprintf("MessageKind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the canonical kinds.
func (k MessageKind) Valid() bool {
	return k >= MessageKindWorld && k <= MessageKindFaction
}

// ParseMessageKind is the inverse of String. Tags are case-sensitive, matching
// what the store holds.
func ParseMessageKind(tag string) (MessageKind, error) {
	switch tag {
	case "World":
		return MessageKindWorld, nil
	case "Tell":
		return MessageKindTell, nil
	case "Faction":
		return MessageKindFaction, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMessageKind, tag)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MessageKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MessageKind) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

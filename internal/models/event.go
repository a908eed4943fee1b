// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Payload is the closed union of normalized event bodies: MessagePayload or
// ActivityPayload.
type Payload interface {
	isPayload()
}

// MessagePayload is a chat line in one of the canonical scopes.
type MessagePayload struct {
	Content string      `json:"content"`
	Kind    MessageKind `json:"kind"`
}

// ActivityPayload is an online/offline transition.
type ActivityPayload struct {
	Online bool `json:"online"`
}

func (MessagePayload) isPayload()  {}
func (ActivityPayload) isPayload() {}

// Event is a normalized upstream event that has not been assigned local
// identity yet. It travels on the ingress queue from the connector to the
// persistence writer.
type Event struct {
	PlayerAlias string
	PlayerUUID  uuid.UUID
	Time        time.Time
	Payload     Payload
}

// NewMessageEvent builds a message event.
func NewMessageEvent(alias string, id uuid.UUID, at time.Time, content string, kind MessageKind) Event {
	return Event{PlayerAlias: alias, PlayerUUID: id, Time: at, Payload: MessagePayload{Content: content, Kind: kind}}
}

// NewActivityEvent builds an online/offline event.
func NewActivityEvent(alias string, id uuid.UUID, at time.Time, online bool) Event {
	return Event{PlayerAlias: alias, PlayerUUID: id, Time: at, Payload: ActivityPayload{Online: online}}
}

// KindName returns "message" or "activity" for logs and metrics labels.
func (e Event) KindName() string {
	switch e.Payload.(type) {
	case MessagePayload:
		return EnvelopeTypeMessage
	case ActivityPayload:
		return EnvelopeTypeActivity
	default:
		return "unknown"
	}
}

type eventJSON struct {
	PlayerAlias string           `json:"player_alias"`
	PlayerUUID  uuid.UUID        `json:"player_uuid"`
	Time        time.Time        `json:"time"`
	Kind        string           `json:"kind"`
	Message     *MessagePayload  `json:"message,omitempty"`
	Activity    *ActivityPayload `json:"activity,omitempty"`
}

// MarshalJSON encodes the payload as a tagged object so the dead-letter
// journal can round-trip events.
func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{PlayerAlias: e.PlayerAlias, PlayerUUID: e.PlayerUUID, Time: e.Time}
	switch p := e.Payload.(type) {
	case MessagePayload:
		out.Kind = EnvelopeTypeMessage
		out.Message = &p
	case ActivityPayload:
		out.Kind = EnvelopeTypeActivity
		out.Activity = &p
	default:
		return nil, fmt.Errorf("marshal event: unsupported payload %T", e.Payload)
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.PlayerAlias, e.PlayerUUID, e.Time = in.PlayerAlias, in.PlayerUUID, in.Time
	switch {
	case in.Kind == EnvelopeTypeMessage && in.Message != nil:
		e.Payload = *in.Message
	case in.Kind == EnvelopeTypeActivity && in.Activity != nil:
		e.Payload = *in.Activity
	default:
		return fmt.Errorf("unmarshal event: unknown kind %q", in.Kind)
	}
	return nil
}

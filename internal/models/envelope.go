// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Envelope type tags, also used as SSE event names.
const (
	EnvelopeTypeMessage  = "message"
	EnvelopeTypeActivity = "activity"
)

// Envelope is a persisted, identity-assigned event ready for broadcast.
// Exactly one of Message and Activity is set.
type Envelope struct {
	Message  *Message
	Activity *ActivityRecord
}

// MessageEnvelope wraps a persisted message.
func MessageEnvelope(m Message) Envelope {
	return Envelope{Message: &m}
}

// ActivityEnvelope wraps an activity change.
func ActivityEnvelope(a ActivityRecord) Envelope {
	return Envelope{Activity: &a}
}

// Type returns EnvelopeTypeMessage or EnvelopeTypeActivity.
func (e Envelope) Type() string {
	if e.Message != nil {
		return EnvelopeTypeMessage
	}
	return EnvelopeTypeActivity
}

// PlayerID returns the numeric player id carried by either variant.
func (e Envelope) PlayerID() int64 {
	if e.Message != nil {
		return e.Message.PlayerID
	}
	if e.Activity != nil {
		return e.Activity.PlayerID
	}
	return 0
}

// Data returns the variant body without the type tag.
func (e Envelope) Data() interface{} {
	if e.Message != nil {
		return e.Message
	}
	return e.Activity
}

type envelopeJSON struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON encodes {"type": ..., "data": ...}.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if (e.Message == nil) == (e.Activity == nil) {
		return nil, fmt.Errorf("marshal envelope: exactly one variant must be set")
	}
	data, err := json.Marshal(e.Data())
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelopeJSON{Type: e.Type(), Data: data})
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var in envelopeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*e = Envelope{}
	switch in.Type {
	case EnvelopeTypeMessage:
		var m Message
		if err := json.Unmarshal(in.Data, &m); err != nil {
			return err
		}
		e.Message = &m
	case EnvelopeTypeActivity:
		var a ActivityRecord
		if err := json.Unmarshal(in.Data, &a); err != nil {
			return err
		}
		e.Activity = &a
	default:
		return fmt.Errorf("unmarshal envelope: unknown type %q", in.Type)
	}
	return nil
}

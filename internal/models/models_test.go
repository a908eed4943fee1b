// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package models

import (
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

func TestMessageKind_RoundTrip(t *testing.T) {
	for _, kind := range MessageKinds {
		t.Run(kind.String(), func(t *testing.T) {
			parsed, err := ParseMessageKind(kind.String())
			if err != nil {
				t.Fatalf("ParseMessageKind(%q): %v", kind.String(), err)
			}
			if parsed != kind {
				t.Errorf("round trip = %v, want %v", parsed, kind)
			}

			text, err := kind.MarshalText()
			if err != nil {
				t.Fatalf("MarshalText: %v", err)
			}
			var back MessageKind
			if err := back.UnmarshalText(text); err != nil {
				t.Fatalf("UnmarshalText: %v", err)
			}
			if back != kind {
				t.Errorf("text round trip = %v, want %v", back, kind)
			}
		})
	}
}

func TestMessageKind_UnknownTag(t *testing.T) {
	for _, tag := range []string{"", "world", "Say", "Group", "WORLD"} {
		if _, err := ParseMessageKind(tag); !errors.Is(err, ErrUnknownMessageKind) {
			t.Errorf("ParseMessageKind(%q) err = %v, want ErrUnknownMessageKind", tag, err)
		}
	}

	var zero MessageKind
	if _, err := zero.MarshalText(); !errors.Is(err, ErrUnknownMessageKind) {
		t.Errorf("zero kind MarshalText err = %v", err)
	}
}

func TestMessage_JSONFieldNames(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Message{ID: 5, PlayerID: 2, Content: "hi", Kind: MessageKindFaction, Time: at})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"id":5,"player_id":2,"message":"hi","ty":"Faction","time":"2026-03-01T12:00:00Z"}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestEnvelope_JSON(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("message", func(t *testing.T) {
		env := MessageEnvelope(Message{ID: 9, PlayerID: 1, Content: "gg", Kind: MessageKindWorld, Time: at})
		data, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		var back Envelope
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if back.Type() != EnvelopeTypeMessage || back.Message == nil || back.Message.ID != 9 {
			t.Errorf("unexpected envelope %+v", back)
		}
	})

	t.Run("activity", func(t *testing.T) {
		env := ActivityEnvelope(ActivityRecord{PlayerID: 3, Time: at, Online: true})
		data, err := json.Marshal(env)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		want := `{"type":"activity","data":{"player_id":3,"time":"2026-03-01T12:00:00Z","online":true}}`
		if string(data) != want {
			t.Errorf("got %s\nwant %s", data, want)
		}
		if env.PlayerID() != 3 {
			t.Errorf("PlayerID() = %d", env.PlayerID())
		}
	})

	t.Run("empty envelope rejected", func(t *testing.T) {
		if _, err := json.Marshal(Envelope{}); err == nil {
			t.Error("expected error for envelope without variant")
		}
	})
}

func TestEvent_JSONRoundTrip(t *testing.T) {
	id := uuid.MustParse("6f1c1f0e-3f59-4d5e-9b7a-1e0d2c3b4a59")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []Event{
		NewMessageEvent("Zarn", id, at, "hello", MessageKindTell),
		NewActivityEvent("Zarn", id, at, false),
	}
	for _, ev := range events {
		t.Run(ev.KindName(), func(t *testing.T) {
			data, err := json.Marshal(ev)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var back Event
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if back.PlayerUUID != id || back.PlayerAlias != "Zarn" || !back.Time.Equal(at) {
				t.Errorf("identity lost: %+v", back)
			}
			if back.Payload != ev.Payload {
				t.Errorf("payload = %#v, want %#v", back.Payload, ev.Payload)
			}
		})
	}
}

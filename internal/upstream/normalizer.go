// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package upstream

import (
	"strings"
	"time"

	"github.com/tomtom215/heimdall/internal/models"
)

// Normalize maps a raw session event to a relay event. The second return
// value is false when the event is irrelevant or references a participant
// that is not on the roster.
func Normalize(raw RawEvent, roster Roster, now time.Time) (models.Event, bool) {
	switch ev := raw.(type) {
	case ChatEvent:
		kind, ok := scopeKind(ev.Scope)
		if !ok {
			return models.Event{}, false
		}
		info, ok := roster[ev.Sender]
		if !ok {
			return models.Event{}, false
		}
		return models.NewMessageEvent(info.Alias, info.ExternalID, now, StripSenderPrefix(ev.Text, info.Alias), kind), true

	case PresenceEvent:
		info, ok := roster[ev.Participant]
		if !ok {
			return models.Event{}, false
		}
		return models.NewActivityEvent(info.Alias, info.ExternalID, now, ev.Online), true

	default:
		return models.Event{}, false
	}
}

// StripSenderPrefix removes a leading "alias: " naming the sender. Any other
// text, including a colon later in the line, is returned unchanged.
func StripSenderPrefix(text, alias string) string {
	if alias == "" {
		return text
	}
	if rest, ok := strings.CutPrefix(text, alias+": "); ok {
		return rest
	}
	return text
}

func scopeKind(scope ChatScope) (models.MessageKind, bool) {
	switch scope {
	case ScopeWorld:
		return models.MessageKindWorld, true
	case ScopeTell:
		return models.MessageKindTell, true
	case ScopeFaction:
		return models.MessageKindFaction, true
	default:
		return 0, false
	}
}

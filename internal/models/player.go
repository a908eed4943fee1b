// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is a participant seen at least once on the upstream session.
// UUID is the stable upstream identity; ID is assigned locally on first
// sighting and never changes.
type Player struct {
	ID    int64     `json:"id"`
	UUID  uuid.UUID `json:"uuid"`
	Alias string    `json:"alias"`
}

// Message is a persisted chat line. JSON field names are the ones the
// live chat front end reads.
type Message struct {
	ID       int64       `json:"id"`
	PlayerID int64       `json:"player_id"`
	Content  string      `json:"message"`
	Kind     MessageKind `json:"ty"`
	Time     time.Time   `json:"time"`
}

// ActivityRecord is one online/offline transition for a player.
// Records for a player are expected to alternate online=true/false in time
// order; readers must tolerate violations.
type ActivityRecord struct {
	PlayerID int64     `json:"player_id"`
	Time     time.Time `json:"time"`
	Online   bool      `json:"online"`
}

// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package models defines the data shared by the relay pipeline, the store and
// the HTTP surface.
//
// Event is what the upstream connector produces: a player identity (alias and
// upstream UUID), a timestamp and a Payload, which is either MessagePayload or
// ActivityPayload. The persistence writer resolves the player to a local id,
// persists the row and turns the event into an Envelope, the unit delivered to
// live subscribers.
//
// MessageKind tags serialize as "World", "Tell" and "Faction". Parsing an
// unknown tag returns ErrUnknownMessageKind; it never falls back to a default.
package models

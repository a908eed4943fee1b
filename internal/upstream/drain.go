// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package upstream

import (
	"context"

	"github.com/google/uuid"

	"github.com/tomtom215/heimdall/internal/models"
)

// Drain reports every player on the last observed roster as offline and
// forgets them. Run calls it on every exit path; calling it again is a no-op.
// It returns the number of offline events delivered.
func (m *Manager) Drain(ctx context.Context, out chan<- models.Event) int {
	if len(m.roster) == 0 {
		return 0
	}

	at := m.now()
	sent := 0
	for _, id := range sortedParticipants(m.roster) {
		info := m.roster[id]
		if m.emit(ctx, out, models.NewActivityEvent(info.Alias, info.ExternalID, at, false)) {
			sent++
		}
	}

	m.log.Info().
		Int("players", len(m.roster)).
		Int("delivered", sent).
		Msg("Drained upstream roster")
	m.roster = Roster{}
	m.rosterSize.Store(0)
	return sent
}

// reconcile compares the roster seen before a reconnect with the new
// session's roster. Players missing from the new roster are reported offline
// and new arrivals online. Participant ids are session-local, so players are
// matched by external id.
func (m *Manager) reconcile(ctx context.Context, out chan<- models.Event, current Roster) {
	before := make(map[uuid.UUID]struct{}, len(m.roster))
	for _, info := range m.roster {
		before[info.ExternalID] = struct{}{}
	}
	after := make(map[uuid.UUID]struct{}, len(current))
	for _, info := range current {
		after[info.ExternalID] = struct{}{}
	}

	at := m.now()
	left, joined := 0, 0
	for _, id := range sortedParticipants(m.roster) {
		info := m.roster[id]
		if _, ok := after[info.ExternalID]; !ok {
			m.emit(ctx, out, models.NewActivityEvent(info.Alias, info.ExternalID, at, false))
			left++
		}
	}
	for _, id := range sortedParticipants(current) {
		info := current[id]
		if _, ok := before[info.ExternalID]; !ok {
			m.emit(ctx, out, models.NewActivityEvent(info.Alias, info.ExternalID, at, true))
			joined++
		}
	}

	m.roster = current.Clone()
	m.rosterSize.Store(int32(len(m.roster)))
	if left > 0 || joined > 0 {
		m.log.Info().
			Int("left", left).
			Int("joined", joined).
			Msg("Reconciled roster after reconnect")
	}
}

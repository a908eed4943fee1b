// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package presence tracks which players this process currently believes are
// online.
//
// The set starts empty at process start and is never read back from the
// store. Only the persistence writer mutates it, in lockstep with the
// activity rows it writes; HTTP handlers and metrics read snapshots.
package presence

import (
	"sort"
	"sync"
)

// Reader is the read-only view handed to everything except the writer.
type Reader interface {
	Snapshot() []int64
	Contains(playerID int64) bool
	Len() int
}

// Tracker is a multiple-reader/single-writer set of online player ids.
type Tracker struct {
	mu     sync.RWMutex
	online map[int64]struct{}
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{online: make(map[int64]struct{})}
}

// SetOnline records a transition. It reports whether membership changed, so
// the caller can notice repeated online or offline notifications.
func (t *Tracker) SetOnline(playerID int64, online bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, present := t.online[playerID]
	if online {
		t.online[playerID] = struct{}{}
	} else {
		delete(t.online, playerID)
	}
	return present != online
}

// Snapshot returns a point-in-time copy of the online ids in ascending order.
func (t *Tracker) Snapshot() []int64 {
	t.mu.RLock()
	ids := make([]int64, 0, len(t.online))
	for id := range t.online {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Contains reports whether the player is currently online.
func (t *Tracker) Contains(playerID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.online[playerID]
	return ok
}

// Len returns the number of online players.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.online)
}

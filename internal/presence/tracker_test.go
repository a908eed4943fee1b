// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package presence

import (
	"sync"
	"testing"
)

func TestTracker_SetOnline(t *testing.T) {
	tr := NewTracker()

	if !tr.SetOnline(1, true) {
		t.Error("first online should change membership")
	}
	if tr.SetOnline(1, true) {
		t.Error("repeated online should not change membership")
	}
	if !tr.Contains(1) {
		t.Error("player 1 should be online")
	}
	if !tr.SetOnline(1, false) {
		t.Error("offline should change membership")
	}
	if tr.SetOnline(1, false) {
		t.Error("repeated offline should not change membership")
	}
	if tr.Len() != 0 {
		t.Errorf("Len() = %d, want 0", tr.Len())
	}
}

func TestTracker_SnapshotIsSortedCopy(t *testing.T) {
	tr := NewTracker()
	for _, id := range []int64{5, 2, 9, 1} {
		tr.SetOnline(id, true)
	}

	snap := tr.Snapshot()
	want := []int64{1, 2, 5, 9}
	if len(snap) != len(want) {
		t.Fatalf("Snapshot() = %v, want %v", snap, want)
	}
	for i := range want {
		if snap[i] != want[i] {
			t.Fatalf("Snapshot() = %v, want %v", snap, want)
		}
	}

	snap[0] = 100
	tr.SetOnline(2, false)
	if tr.Contains(100) || len(snap) != 4 {
		t.Error("snapshot must be independent of the tracker")
	}
}

func TestTracker_ConcurrentReaders(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(0); i < 1000; i++ {
			tr.SetOnline(i%50, i%3 != 0)
		}
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				snap := tr.Snapshot()
				for j := 1; j < len(snap); j++ {
					if snap[j-1] >= snap[j] {
						t.Errorf("snapshot not strictly ascending: %v", snap)
						return
					}
				}
				_ = tr.Len()
			}
		}()
	}
	wg.Wait()
}

var _ Reader = (*Tracker)(nil)

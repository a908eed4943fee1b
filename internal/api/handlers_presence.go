// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import "net/http"

// Presence returns a point-in-time snapshot of online player ids.
func (h *Handler) Presence(w http.ResponseWriter, r *http.Request) {
	ids := h.presence.Snapshot()
	if ids == nil {
		ids = []int64{}
	}
	respondData(w, PresenceResponse{Online: ids, Count: len(ids)}, 0)
}

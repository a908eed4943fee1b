// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package playtime folds a player's activity log into cumulative online time.
package playtime

import (
	"time"

	"github.com/tomtom215/heimdall/internal/models"
)

// Anomaly is a record that repeated the previous online value.
type Anomaly struct {
	Index  int       `json:"index"`
	Time   time.Time `json:"time"`
	Online bool      `json:"online"`
}

// Result is the outcome of Reconstruct.
type Result struct {
	Total     time.Duration
	Online    bool
	Anomalies []Anomaly
}

// Reconstruct walks records, which must be ordered ascending by time, and sums
// the closed online intervals plus the open one ending at now. A record whose
// online value matches the previous accepted record is reported as an anomaly
// and otherwise ignored.
func Reconstruct(records []models.ActivityRecord, now time.Time) Result {
	var (
		res       Result
		expecting = true
		start     time.Time
	)

	for i, rec := range records {
		if rec.Online != expecting {
			res.Anomalies = append(res.Anomalies, Anomaly{Index: i, Time: rec.Time, Online: rec.Online})
			continue
		}
		if rec.Online {
			start = rec.Time
		} else {
			res.Total += rec.Time.Sub(start)
		}
		expecting = !expecting
	}

	if !expecting {
		res.Total += now.Sub(start)
		res.Online = true
	}
	return res
}

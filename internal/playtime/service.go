// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package playtime

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
)

// ActivityLister reads a player's ordered activity history.
type ActivityLister interface {
	ListActivity(ctx context.Context, playerID int64) ([]models.ActivityRecord, error)
}

// Service answers playtime queries against stored history.
type Service struct {
	store ActivityLister
	now   func() time.Time
}

// NewService creates a Service reading from store.
func NewService(store ActivityLister) *Service {
	return &Service{store: store, now: time.Now}
}

// ForPlayer loads the player's history and reconstructs it as of now.
// Anomalies are logged and counted but never returned as errors.
func (s *Service) ForPlayer(ctx context.Context, playerID int64) (Result, error) {
	records, err := s.store.ListActivity(ctx, playerID)
	if err != nil {
		return Result{}, fmt.Errorf("list activity for player %d: %w", playerID, err)
	}

	res := Reconstruct(records, s.now())
	for _, a := range res.Anomalies {
		logging.Ctx(ctx).Warn().
			Int64("player_id", playerID).
			Int("index", a.Index).
			Time("time", a.Time).
			Bool("online", a.Online).
			Msg("Activity history out of order, record ignored")
	}
	if n := len(res.Anomalies); n > 0 {
		metrics.PlaytimeAnomalies.Add(float64(n))
	}
	return res, nil
}

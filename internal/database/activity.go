// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/heimdall/internal/models"
)

// InsertActivity records an online/offline transition.
func (db *DB) InsertActivity(ctx context.Context, playerID int64, at time.Time, online bool) error {
	q := fmt.Sprintf(`INSERT INTO activity (player_id, "time", online) VALUES (%s, %s, %s)`,
		db.bind(1), db.bind(2), db.bind(3))
	if _, err := db.conn.ExecContext(ctx, q, playerID, at.UTC(), online); err != nil {
		return fmt.Errorf("failed to insert activity for player %d: %w", playerID, err)
	}
	return nil
}

// ListActivity returns every transition for playerID in time order. Rows with
// equal timestamps keep their insertion order.
func (db *DB) ListActivity(ctx context.Context, playerID int64) ([]models.ActivityRecord, error) {
	q := fmt.Sprintf(`SELECT player_id, "time", online FROM activity WHERE player_id = %s ORDER BY "time", %s`,
		db.bind(1), db.rowOrder())

	rows, err := db.conn.QueryContext(ctx, q, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity for player %d: %w", playerID, err)
	}
	defer rows.Close()

	records := make([]models.ActivityRecord, 0)
	for rows.Next() {
		var r models.ActivityRecord
		if err := rows.Scan(&r.PlayerID, &r.Time, &r.Online); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		r.Time = r.Time.UTC()
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return records, nil
}

// rowOrder names the physical row column used to break timestamp ties.
func (db *DB) rowOrder() string {
	if db.dialect == DialectPostgres {
		return "ctid"
	}
	return "rowid"
}

// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/heimdall/internal/database/query"
	"github.com/tomtom215/heimdall/internal/models"
)

const (
	// HistoryPageSize is the number of messages returned by MessagesBefore.
	HistoryPageSize = 50
	// DefaultPerPage applies when a MessageFilter leaves PerPage zero.
	DefaultPerPage = 50
	// MaxPerPage bounds MessageFilter.PerPage.
	MaxPerPage = 500
)

// MessageFilter selects messages for QueryMessages. Nil fields are ignored.
// Time bounds are exclusive.
type MessageFilter struct {
	PlayerID *int64
	After    *time.Time
	Before   *time.Time
	PerPage  int
	Page     int
}

// InsertMessage stores a chat line and returns its id.
func (db *DB) InsertMessage(ctx context.Context, playerID int64, at time.Time, content string, kind models.MessageKind) (int64, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("failed to insert message: %w: %d", models.ErrUnknownMessageKind, uint8(kind))
	}
	q := fmt.Sprintf(
		`INSERT INTO messages (player_id, "time", content, ty) VALUES (%s, %s, %s, %s) RETURNING id`,
		db.bind(1), db.bind(2), db.bind(3), db.bind(4))

	var id int64
	if err := db.conn.QueryRowContext(ctx, q, playerID, at.UTC(), content, kind.String()).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert message for player %d: %w", playerID, err)
	}
	return id, nil
}

// MessagesBefore returns up to HistoryPageSize messages with an id lower than
// before, newest first. A nil before starts from the newest message.
func (db *DB) MessagesBefore(ctx context.Context, before *int64) ([]models.Message, error) {
	wb := query.NewWhereBuilder(db.placeholder())
	if before != nil {
		wb.AddLessThan("id", *before)
	}
	where, args := wb.BuildWithPrefix()
	q := fmt.Sprintf(`SELECT id, player_id, "time", content, ty FROM messages %s ORDER BY id DESC LIMIT %d`,
		where, HistoryPageSize)
	return db.queryMessages(ctx, q, args...)
}

// QueryMessages returns one page of messages matching f, newest first.
func (db *DB) QueryMessages(ctx context.Context, f MessageFilter) ([]models.Message, error) {
	perPage := f.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	page := f.Page
	if page < 0 {
		page = 0
	}

	wb := query.NewWhereBuilder(db.placeholder())
	if f.PlayerID != nil {
		wb.AddEquals("player_id", *f.PlayerID)
	}
	wb.AddTimeRange(`"time"`, f.After, f.Before)
	where, args := wb.BuildWithPrefix()

	q := fmt.Sprintf(`SELECT id, player_id, "time", content, ty FROM messages %s ORDER BY id DESC LIMIT %d OFFSET %d`,
		where, perPage, page*perPage)
	return db.queryMessages(ctx, q, args...)
}

func (db *DB) queryMessages(ctx context.Context, q string, args ...any) ([]models.Message, error) {
	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var (
			m   models.Message
			tag string
		)
		if err := rows.Scan(&m.ID, &m.PlayerID, &m.Time, &m.Content, &tag); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		kind, err := models.ParseMessageKind(tag)
		if err != nil {
			db.log.Warn().Err(err).Int64("message_id", m.ID).Msg("Skipping message with unknown kind")
			continue
		}
		m.Kind = kind
		m.Time = m.Time.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

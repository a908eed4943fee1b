// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/heimdall/internal/models"
)

// MaxPlayerSearchResults bounds SearchPlayers.
const MaxPlayerSearchResults = 100

// UpsertPlayer returns the local id for externalID, inserting the player with
// alias if it has never been seen. The alias of an existing player is left
// unchanged.
func (db *DB) UpsertPlayer(ctx context.Context, externalID uuid.UUID, alias string) (int64, error) {
	key := externalID.String()

	id, err := db.playerIDByUUID(ctx, key)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up player %s: %w", key, err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO players (uuid, alias) VALUES (%s, %s) ON CONFLICT (uuid) DO NOTHING",
		db.bind(1), db.bind(2))
	if _, err := db.conn.ExecContext(ctx, insert, key, alias); err != nil {
		return 0, fmt.Errorf("failed to insert player %s: %w", key, err)
	}

	id, err = db.playerIDByUUID(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read back player %s: %w", key, err)
	}
	return id, nil
}

func (db *DB) playerIDByUUID(ctx context.Context, key string) (int64, error) {
	var id int64
	q := fmt.Sprintf("SELECT id FROM players WHERE uuid = %s", db.bind(1))
	err := db.conn.QueryRowContext(ctx, q, key).Scan(&id)
	return id, err
}

// GetPlayer returns the player with the given local id.
func (db *DB) GetPlayer(ctx context.Context, id int64) (*models.Player, error) {
	q := fmt.Sprintf("SELECT id, uuid, alias FROM players WHERE id = %s", db.bind(1))
	p, err := scanPlayer(db.conn.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return p, nil
}

// PlayerAlias returns the alias recorded for id.
func (db *DB) PlayerAlias(ctx context.Context, id int64) (string, error) {
	p, err := db.GetPlayer(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Alias, nil
}

// SearchPlayers returns players whose alias contains substr, case-insensitively,
// ordered by id. An empty substr lists every player up to the result bound.
func (db *DB) SearchPlayers(ctx context.Context, substr string) ([]models.Player, error) {
	pattern := "%" + escapeLike(strings.ToLower(substr)) + "%"
	q := fmt.Sprintf(
		"SELECT id, uuid, alias FROM players WHERE LOWER(alias) LIKE %s ESCAPE '\\' ORDER BY id LIMIT %d",
		db.bind(1), MaxPlayerSearchResults)

	rows, err := db.conn.QueryContext(ctx, q, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	defer rows.Close()

	players := make([]models.Player, 0)
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}
	return players, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*models.Player, error) {
	var (
		p   models.Player
		raw string
	)
	if err := row.Scan(&p.ID, &raw, &p.Alias); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("player %d has malformed uuid %q: %w", p.ID, raw, err)
	}
	p.UUID = parsed
	return &p, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "%", "\\%", "_", "\\_")
	return r.Replace(s)
}

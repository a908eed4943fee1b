// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package validation

// MessageQueryRequest is the body of POST /api/v1/messages/query.
type MessageQueryRequest struct {
	PerPage  int    `json:"per_page" validate:"gte=0,lte=500"`
	Page     int    `json:"page" validate:"gte=0,lte=1000000"`
	PlayerID *int64 `json:"player_id" validate:"omitempty,gte=1"`
	After    string `json:"after" validate:"omitempty,timestamp"`
	Before   string `json:"before" validate:"omitempty,timestamp"`
}

// MessagesBeforeRequest holds the query parameters of GET /api/v1/messages.
type MessagesBeforeRequest struct {
	Before *int64 `json:"before" validate:"omitempty,gte=1"`
}

// PlayerSearchRequest holds the query parameters of GET /api/v1/players.
type PlayerSearchRequest struct {
	Alias string `json:"alias" validate:"max=64"`
}

// JournalListRequest holds the query parameters of GET /api/v1/journal.
type JournalListRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=1000"`
}

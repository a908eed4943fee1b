// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/heimdall/internal/database"
	"github.com/tomtom215/heimdall/internal/playtime"
	"github.com/tomtom215/heimdall/internal/validation"
)

// Player returns one player by numeric id.
func (h *Handler) Player(w http.ResponseWriter, r *http.Request) {
	id, ok := playerIDParam(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "player id must be a positive integer", nil)
		return
	}

	start := time.Now()
	player, err := h.store.GetPlayer(r.Context(), id)
	if errors.Is(err, database.ErrPlayerNotFound) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "player not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "failed to load player", err)
		return
	}
	respondData(w, player, time.Since(start))
}

// Players returns the ids of players whose alias contains the alias query
// parameter, case-insensitively. An empty alias matches everyone, up to
// database.MaxPlayerSearchResults.
func (h *Handler) Players(w http.ResponseWriter, r *http.Request) {
	req := validation.PlayerSearchRequest{
		Alias: strings.TrimSpace(r.URL.Query().Get("alias")),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	start := time.Now()
	players, err := h.store.SearchPlayers(r.Context(), req.Alias)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "failed to search players", err)
		return
	}

	ids := make([]int64, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	respondData(w, ids, time.Since(start))
}

// Playtime reconstructs a player's total online time from stored activity.
func (h *Handler) Playtime(w http.ResponseWriter, r *http.Request) {
	id, ok := playerIDParam(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "player id must be a positive integer", nil)
		return
	}

	start := time.Now()
	player, err := h.store.GetPlayer(r.Context(), id)
	if errors.Is(err, database.ErrPlayerNotFound) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "player not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "failed to load player", err)
		return
	}

	res, err := h.playtime.ForPlayer(r.Context(), id)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "failed to load activity", err)
		return
	}

	resp := PlaytimeResponse{
		PlayerID:        id,
		Alias:           player.Alias,
		PlayTimeSeconds: int64(res.Total / time.Second),
		Online:          res.Online,
		Anomalies:       res.Anomalies,
	}
	if resp.Anomalies == nil {
		resp.Anomalies = []playtime.Anomaly{}
	}
	respondData(w, resp, time.Since(start))
}

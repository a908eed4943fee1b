// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/heimdall/internal/database"
	"github.com/tomtom215/heimdall/internal/models"
	"github.com/tomtom215/heimdall/internal/validation"
)

// Messages returns the newest database.HistoryPageSize messages, or the ones
// just older than the before id when it is given. Clients page backwards by
// passing the smallest id they have seen.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	before, ok := getOptionalInt64Param(r, "before")
	if !ok {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "before must be a message id", nil)
		return
	}
	req := validation.MessagesBeforeRequest{Before: before}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	start := time.Now()
	msgs, err := h.store.MessagesBefore(r.Context(), req.Before)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "failed to load messages", err)
		return
	}
	respondMessages(w, msgs, time.Since(start))
}

// QueryMessages filters history by player and time range, newest first.
// Timestamps may be RFC 3339 or RFC 2822.
func (h *Handler) QueryMessages(w http.ResponseWriter, r *http.Request) {
	var req validation.MessageQueryRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeBadJSON, "request body must be a JSON message query", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	filter, err := messageFilter(req)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error(), nil)
		return
	}

	start := time.Now()
	msgs, err := h.store.QueryMessages(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeDatabase, "failed to query messages", err)
		return
	}
	respondMessages(w, msgs, time.Since(start))
}

func messageFilter(req validation.MessageQueryRequest) (database.MessageFilter, error) {
	f := database.MessageFilter{
		PlayerID: req.PlayerID,
		PerPage:  req.PerPage,
		Page:     req.Page,
	}
	if req.After != "" {
		t, err := validation.ParseTimestamp(req.After)
		if err != nil {
			return f, err
		}
		f.After = &t
	}
	if req.Before != "" {
		t, err := validation.ParseTimestamp(req.Before)
		if err != nil {
			return f, err
		}
		f.Before = &t
	}
	return f, nil
}

func respondMessages(w http.ResponseWriter, msgs []models.Message, queryTime time.Duration) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	resp := models.NewSuccessResponse(msgs, queryTime)
	n := len(msgs)
	resp.Metadata.Count = &n
	respondJSON(w, http.StatusOK, resp)
}

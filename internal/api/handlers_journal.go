// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/heimdall/internal/journal"
	"github.com/tomtom215/heimdall/internal/validation"
)

// Journal lists dead-letter entries, newest first.
func (h *Handler) Journal(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeJournalDisabled, "dead-letter journal is disabled", nil)
		return
	}

	limit, ok := getIntParam(r, "limit", journal.DefaultListLimit)
	if !ok {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "limit must be an integer", nil)
		return
	}
	req := validation.JournalListRequest{Limit: limit}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	start := time.Now()
	entries, err := h.journal.List(r.Context(), req.Limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeJournal, "failed to list journal", err)
		return
	}
	total, err := h.journal.Count(r.Context())
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeJournal, "failed to count journal", err)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	respondData(w, JournalResponse{Entries: entries, Total: total}, time.Since(start))
}

// DeleteJournalEntry discards one dead-letter entry.
func (h *Handler) DeleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		respondError(w, r, http.StatusServiceUnavailable, CodeJournalDisabled, "dead-letter journal is disabled", nil)
		return
	}

	id := chi.URLParam(r, "id")
	err := h.journal.Delete(r.Context(), id)
	if errors.Is(err, journal.ErrEntryNotFound) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "journal entry not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, CodeJournal, "failed to delete journal entry", err)
		return
	}
	respondData(w, map[string]string{"deleted": id}, 0)
}

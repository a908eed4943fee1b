// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

// Error codes returned in models.APIError.Code.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeDatabase          = "DATABASE_ERROR"
	CodeJournal           = "JOURNAL_ERROR"
	CodeJournalDisabled   = "JOURNAL_DISABLED"
	CodeStreamUnavailable = "STREAM_UNAVAILABLE"
	CodeBadJSON           = "INVALID_JSON"
)

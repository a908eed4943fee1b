// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package models

import "time"

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope every JSON endpoint returns.
//
// Success:
//
//	{"status":"success","data":{...},"metadata":{"timestamp":"2026-01-01T12:00:00Z","query_time_ms":3}}
//
// Error:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "per_page must be at most 500",
//	    "details": {"field": "per_page"}
//	  },
//	  "metadata": {"timestamp": "2026-01-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries the response time and, for store-backed endpoints, how
// long the query took.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       *int      `json:"count,omitempty"`
}

// APIError is a machine-readable error code plus a human message.
//
// Codes used by the API:
//   - VALIDATION_ERROR: invalid query parameters or body
//   - NOT_FOUND: unknown player or journal entry
//   - DATABASE_ERROR: the store failed
//   - JOURNAL_ERROR / JOURNAL_DISABLED: dead-letter journal unavailable
//   - STREAM_UNAVAILABLE: live streaming not possible on this connection
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`

	// RequestID matches the X-Request-Id header so a client report can be
	// found in the server log.
	RequestID string `json:"request_id,omitempty"`
}

// NewSuccessResponse wraps data with the current timestamp.
func NewSuccessResponse(data interface{}, queryTime time.Duration) *APIResponse {
	return &APIResponse{
		Status: StatusSuccess,
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: queryTime.Milliseconds(),
		},
	}
}

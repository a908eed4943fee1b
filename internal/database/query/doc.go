// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package query builds parameterized WHERE clauses for the database package.
//
// Clauses are written with "?" markers; the builder renumbers them for the
// target dialect, so the same filter code serves DuckDB and SQLite ("?") and
// PostgreSQL ("$1", "$2", ...):
//
//	wb := query.NewWhereBuilder(query.Dollar)
//	wb.AddEquals("player_id", 7)
//	wb.AddTimeRange(`"time"`, after, before)
//	where, args := wb.BuildWithPrefix()
//	// WHERE player_id = $1 AND "time" > $2 AND "time" < $3
//
// Column names are interpolated as given and must never come from user input.
package query

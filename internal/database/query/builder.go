// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package query

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder renders the pos-th (1-based) bind parameter.
type Placeholder func(pos int) string

// Question renders every parameter as "?" (DuckDB, SQLite).
func Question(int) string { return "?" }

// Dollar renders numbered parameters (PostgreSQL).
func Dollar(pos int) string { return fmt.Sprintf("$%d", pos) }

// WhereBuilder accumulates AND-joined conditions and their arguments.
type WhereBuilder struct {
	bind    Placeholder
	clauses []string
	args    []any
}

// NewWhereBuilder creates a builder rendering parameters with bind. A nil
// bind selects Question.
func NewWhereBuilder(bind Placeholder) *WhereBuilder {
	if bind == nil {
		bind = Question
	}
	return &WhereBuilder{bind: bind}
}

// AddClause adds a raw condition. Each "?" in clause consumes one of args, in
// order, and is replaced with the dialect's placeholder.
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	var b strings.Builder
	used := 0
	for _, r := range clause {
		if r == '?' && used < len(args) {
			used++
			b.WriteString(wb.bind(len(wb.args) + used))
			continue
		}
		b.WriteRune(r)
	}
	wb.clauses = append(wb.clauses, b.String())
	wb.args = append(wb.args, args...)
	return wb
}

// AddEquals adds "column = ?".
func (wb *WhereBuilder) AddEquals(column string, value any) *WhereBuilder {
	return wb.AddClause(column+" = ?", value)
}

// AddLessThan adds "column < ?".
func (wb *WhereBuilder) AddLessThan(column string, value any) *WhereBuilder {
	return wb.AddClause(column+" < ?", value)
}

// AddTimeRange adds exclusive bounds on column. Nil bounds are skipped.
// Times are normalized to UTC.
func (wb *WhereBuilder) AddTimeRange(column string, after, before *time.Time) *WhereBuilder {
	if after != nil {
		wb.AddClause(column+" > ?", after.UTC())
	}
	if before != nil {
		wb.AddClause(column+" < ?", before.UTC())
	}
	return wb
}

// AddIn adds "column IN (?, ...)". An empty values slice is skipped.
func (wb *WhereBuilder) AddIn(column string, values []any) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ")
	return wb.AddClause(fmt.Sprintf("%s IN (%s)", column, marks), values...)
}

// Build returns the AND-joined conditions and their arguments, or "1=1" when
// there are none.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", []any{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the conditions with a leading "WHERE ", or an empty
// string when there are none.
func (wb *WhereBuilder) BuildWithPrefix() (string, []any) {
	if len(wb.clauses) == 0 {
		return "", []any{}
	}
	where, args := wb.Build()
	return "WHERE " + where, args
}

// Count returns the number of conditions added.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no conditions were added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}

// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package validation

import (
	"strings"
	"testing"
	"time"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestValidateStruct_MessageQuery(t *testing.T) {
	tests := []struct {
		name      string
		input     MessageQueryRequest
		wantField string
		wantTag   string
	}{
		{name: "empty is valid", input: MessageQueryRequest{}},
		{name: "full rfc3339", input: MessageQueryRequest{PerPage: 20, Page: 2, PlayerID: int64Ptr(4), After: "2026-03-01T12:00:00Z", Before: "2026-03-02T00:00:00.5+01:00"}},
		{name: "rfc2822", input: MessageQueryRequest{After: "Sun, 01 Mar 2026 12:00:00 +0000"}},
		{name: "per_page too large", input: MessageQueryRequest{PerPage: 501}, wantField: "per_page", wantTag: "lte"},
		{name: "negative page", input: MessageQueryRequest{Page: -1}, wantField: "page", wantTag: "gte"},
		{name: "zero player id", input: MessageQueryRequest{PlayerID: int64Ptr(0)}, wantField: "player_id", wantTag: "gte"},
		{name: "bad after", input: MessageQueryRequest{After: "yesterday"}, wantField: "after", wantTag: "timestamp"},
		{name: "bad before", input: MessageQueryRequest{Before: "2026-13-01"}, wantField: "before", wantTag: "timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if len(err) != 1 {
				t.Fatalf("got %d errors, want 1: %v", len(err), err)
			}
			if err[0].Field != tt.wantField || err[0].Rule != tt.wantTag {
				t.Errorf("error field/rule = %s/%s, want %s/%s", err[0].Field, err[0].Rule, tt.wantField, tt.wantTag)
			}
		})
	}
}

func TestErrors_Error(t *testing.T) {
	single := ValidateStruct(&MessageQueryRequest{After: "nope"})
	if got := single.Error(); got != "after must be an RFC 3339 or RFC 2822 timestamp" {
		t.Errorf("single Error() = %q", got)
	}

	multi := ValidateStruct(&MessageQueryRequest{PerPage: 1000, Page: -5})
	if len(multi) != 2 {
		t.Fatalf("got %d errors, want 2: %v", len(multi), multi)
	}
	want := "per_page: per_page must be less than or equal to 500; page: page must be greater than or equal to 0"
	if got := multi.Error(); got != want {
		t.Errorf("multi Error() = %q, want %q", got, want)
	}

	if got := Errors(nil).Error(); got != "validation failed" {
		t.Errorf("empty Error() = %q", got)
	}
}

func TestValidateStruct_OtherRequests(t *testing.T) {
	if err := ValidateStruct(&PlayerSearchRequest{Alias: strings.Repeat("a", 65)}); err == nil {
		t.Error("65-character alias search should fail")
	} else if !strings.Contains(err.Error(), "at most 64 characters") {
		t.Errorf("error = %v", err)
	}
	if err := ValidateStruct(&JournalListRequest{Limit: 5000}); err == nil {
		t.Error("journal limit 5000 should fail")
	}
	if err := ValidateStruct(&MessagesBeforeRequest{Before: int64Ptr(-1)}); err == nil {
		t.Error("negative cursor should fail")
	}
	if err := ValidateStruct(&MessagesBeforeRequest{}); err != nil {
		t.Errorf("missing cursor should be valid, got %v", err)
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"2026-03-01T12:00:00Z", want, false},
		{"2026-03-01T13:00:00+01:00", want, false},
		{"Sun, 01 Mar 2026 12:00:00 +0000", want, false},
		{"Sun, 1 Mar 2026 07:00:00 -0500", want, false},
		{"", time.Time{}, true},
		{"1700000000", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v", tt.in, err)
			}
			if !tt.wantErr && (!got.Equal(tt.want) || got.Location() != time.UTC) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

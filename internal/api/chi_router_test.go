// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/presence"
)

func TestRouter_SecurityHeadersAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/api/v1/presence", "")

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-cache",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id response header")
	}
	if !strings.HasPrefix(rec.Header().Get("ETag"), `W/"`) {
		t.Errorf("ETag = %q, want weak etag", rec.Header().Get("ETag"))
	}
}

func TestRouter_PreservesRequestID(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	req.Header.Set("X-Request-Id", "upstream-proxy-id")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "upstream-proxy-id" {
		t.Errorf("X-Request-Id = %q, want upstream-proxy-id", got)
	}
}

func TestRouter_ErrorsCarryRequestID(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name, target, wantCode string
		wantFields             bool
	}{
		{"handler error", "/api/v1/players/abc", CodeValidation, false},
		{"struct validation", "/api/v1/messages?before=-1", CodeValidation, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := env.do(t, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest || resp.Error == nil {
				t.Fatalf("status = %d, error = %+v", rec.Code, resp.Error)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.wantCode)
			}
			if want := rec.Header().Get("X-Request-Id"); want == "" || resp.Error.RequestID != want {
				t.Errorf("request_id = %q, header = %q", resp.Error.RequestID, want)
			}
			if rec.Header().Get(CorrelationIDHeader) == "" {
				t.Errorf("missing %s header", CorrelationIDHeader)
			}
			fields, ok := resp.Error.Details["fields"].([]interface{})
			if tt.wantFields && (!ok || len(fields) != 1) {
				t.Errorf("details.fields = %v", resp.Error.Details["fields"])
			}
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"http://example.com", "http://example.com"},
		{"http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodOptions, "/api/v1/messages/query", nil)
			req.Header.Set("Origin", tt.origin)
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllow)
			}
		})
	}
}

func TestRouter_MethodAndPath(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/v1/messages/query", http.StatusMethodNotAllowed},
		{http.MethodPost, "/api/v1/presence", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.target, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rec := httptest.NewRecorder()
			env.router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRouter_RateLimit(t *testing.T) {
	h := NewHandler(newFakeStore(), presence.NewTracker(), fakePlaytime{}, &config.Config{})
	mw := NewChiMiddlewareFromConfig(&config.SecurityConfig{
		RateLimitReqs:   2,
		RateLimitWindow: time.Minute,
	})
	router := NewRouter(h, mw).SetupChi()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/presence", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name        string
		corsOrigins []string
		origin      string
		want        bool
	}{
		{"missing origin rejected", []string{"*"}, "", false},
		{"wildcard", []string{"*"}, "http://anything.example", true},
		{"listed", []string{"http://a.example", "http://b.example"}, "http://b.example", true},
		{"not listed", []string{"http://a.example"}, "http://b.example", false},
		{"no origins configured", nil, "http://a.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Security.CORSOrigins = tt.corsOrigins
			h := NewHandler(nil, nil, nil, cfg)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSanitizeLogValue(t *testing.T) {
	tests := []struct{ in, want string }{
		{"plain", "plain"},
		{"line\nforged", `line\x0aforged`},
		{"tab\there", `tab\x09here`},
	}
	for _, tt := range tests {
		if got := sanitizeLogValue(tt.in); got != tt.want {
			t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

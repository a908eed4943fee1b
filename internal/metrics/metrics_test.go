// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordConnectAttempt(t *testing.T) {
	beforeOK := testutil.ToFloat64(UpstreamConnectAttempts.WithLabelValues("success"))
	beforeFail := testutil.ToFloat64(UpstreamConnectAttempts.WithLabelValues("failure"))

	RecordConnectAttempt(nil)
	RecordConnectAttempt(errors.New("refused"))
	RecordConnectAttempt(errors.New("refused"))

	if got := testutil.ToFloat64(UpstreamConnectAttempts.WithLabelValues("success")) - beforeOK; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(UpstreamConnectAttempts.WithLabelValues("failure")) - beforeFail; got != 2 {
		t.Errorf("failure delta = %v, want 2", got)
	}
}

func TestRecordStoreOperation(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		err       error
		wantErr   float64
	}{
		{name: "success", operation: "insert_message", err: nil, wantErr: 0},
		{name: "failure", operation: "insert_activity", err: errors.New("disk full"), wantErr: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(RelayStoreErrors.WithLabelValues(tt.operation))
			RecordStoreOperation(tt.operation, 3*time.Millisecond, tt.err)
			if got := testutil.ToFloat64(RelayStoreErrors.WithLabelValues(tt.operation)) - before; got != tt.wantErr {
				t.Errorf("error delta = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("active delta = %v, want 1", got)
	}
	TrackActiveRequest(false)
}

func TestRecordBreakerTransition(t *testing.T) {
	RecordBreakerTransition("nats-mirror", "closed", "open", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("nats-mirror")); got != 2 {
		t.Errorf("state = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CircuitBreakerTransitions.WithLabelValues("nats-mirror", "closed", "open")); got < 1 {
		t.Errorf("transitions = %v, want >= 1", got)
	}
}

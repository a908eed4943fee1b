// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package upstream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/heimdall/internal/models"
)

type fakeSession struct {
	mu       sync.Mutex
	roster   Roster
	batches  [][]RawEvent
	failAt   int
	panicAt  int
	ticks    int
	cleanups int
	closed   bool
	tickedCh chan int
}

func (s *fakeSession) Tick(_ context.Context, _ time.Duration) ([]RawEvent, error) {
	s.mu.Lock()
	s.ticks++
	n := s.ticks
	var batch []RawEvent
	if len(s.batches) > 0 {
		batch, s.batches = s.batches[0], s.batches[1:]
	}
	s.mu.Unlock()

	if s.tickedCh != nil {
		select {
		case s.tickedCh <- n:
		default:
		}
	}
	if s.panicAt > 0 && n == s.panicAt {
		panic("session exploded")
	}
	if s.failAt > 0 && n >= s.failAt {
		return nil, errors.New("tick failed")
	}
	return batch, nil
}

func (s *fakeSession) Roster() Roster {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roster.Clone()
}

func (s *fakeSession) Cleanup() {
	s.mu.Lock()
	s.cleanups++
	s.mu.Unlock()
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type dialResult struct {
	sess Session
	err  error
}

type fakeDialer struct {
	mu      sync.Mutex
	results []dialResult
	dials   []time.Time
}

func (d *fakeDialer) Dial(ctx context.Context, _ string, _ Credentials, _ TrustPredicate) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials = append(d.dials, time.Now())
	if len(d.results) == 0 {
		return nil, errors.New("no more sessions")
	}
	r := d.results[0]
	if len(d.results) > 1 {
		d.results = d.results[1:]
	}
	return r.sess, r.err
}

func (d *fakeDialer) dialTimes() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Time(nil), d.dials...)
}

func fastConfig() Config {
	return Config{
		TickRate:           200,
		ConnectBaseDelay:   20 * time.Millisecond,
		ReconnectBaseDelay: 40 * time.Millisecond,
		DrainTimeout:       time.Second,
	}
}

func collect(t *testing.T, out <-chan models.Event, n int) []models.Event {
	t.Helper()
	var got []models.Event
	deadline := time.After(3 * time.Second)
	for len(got) < n {
		select {
		case ev := <-out:
			got = append(got, ev)
		case <-deadline:
			t.Fatalf("collected %d events, want %d: %+v", len(got), n, got)
		}
	}
	return got
}

func activity(t *testing.T, ev models.Event) bool {
	t.Helper()
	p, ok := ev.Payload.(models.ActivityPayload)
	if !ok {
		t.Fatalf("payload = %#v, want activity", ev.Payload)
	}
	return p.Online
}

func runManager(ctx context.Context, m *Manager, out chan<- models.Event) <-chan error {
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, out) }()
	return done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("manager did not stop")
		return nil
	}
}

func TestManager_JoinSnapshotOnceAndDrainOnCancel(t *testing.T) {
	sess := &fakeSession{roster: testRoster(), tickedCh: make(chan int, 1)}
	m := NewManager(fastConfig(), &fakeDialer{results: []dialResult{{sess: sess}}})
	out := make(chan models.Event, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := runManager(ctx, m, out)

	seed := collect(t, out, 2)
	if seed[0].PlayerUUID != aliceID || seed[1].PlayerUUID != bobID {
		t.Errorf("seed order = %v, %v; want alice then bob", seed[0].PlayerAlias, seed[1].PlayerAlias)
	}
	for _, ev := range seed {
		if !activity(t, ev) {
			t.Errorf("seed event for %s is offline", ev.PlayerAlias)
		}
	}

	for sess.ticksSoFar() < 5 {
		<-sess.tickedCh
	}
	if m.State() != StateConnected {
		t.Errorf("State() = %v, want connected", m.State())
	}

	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	drained := collect(t, out, 2)
	for _, ev := range drained {
		if activity(t, ev) {
			t.Errorf("drain event for %s is online", ev.PlayerAlias)
		}
	}
	select {
	case ev := <-out:
		t.Errorf("unexpected extra event %+v", ev)
	default:
	}
	if m.State() != StateDisconnected {
		t.Errorf("State() = %v, want disconnected", m.State())
	}
	if !sess.isClosed() {
		t.Error("session was not closed")
	}
}

func TestManager_NormalizesEvents(t *testing.T) {
	sess := &fakeSession{
		roster: Roster{1: {Alias: "alice", ExternalID: aliceID}},
		batches: [][]RawEvent{{
			ChatEvent{Scope: ScopeWorld, Sender: 1, Text: "alice: hello"},
			ChatEvent{Scope: ScopeSay, Sender: 1, Text: "alice: ignored"},
			PresenceEvent{Participant: 42, Online: true},
			NoticeEvent{Text: "hi"},
			PresenceEvent{Participant: 1, Online: false},
		}},
	}
	m := NewManager(fastConfig(), &fakeDialer{results: []dialResult{{sess: sess}}})
	out := make(chan models.Event, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runManager(ctx, m, out)

	got := collect(t, out, 3)
	if !activity(t, got[0]) {
		t.Error("first event should be the join snapshot")
	}
	msg, ok := got[1].Payload.(models.MessagePayload)
	if !ok || msg.Content != "hello" || msg.Kind != models.MessageKindWorld {
		t.Errorf("second event = %#v, want world message \"hello\"", got[1].Payload)
	}
	if activity(t, got[2]) {
		t.Error("third event should be offline")
	}

	cancel()
	_ = waitDone(t, done)
}

func TestManager_ConnectBackoffAndReset(t *testing.T) {
	sess := &fakeSession{roster: Roster{}, tickedCh: make(chan int, 1)}
	cfg := fastConfig()
	dialer := &fakeDialer{results: []dialResult{
		{err: errors.New("refused")},
		{err: errors.New("refused")},
		{sess: sess},
	}}
	m := NewManager(cfg, dialer)
	out := make(chan models.Event, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runManager(ctx, m, out)

	<-sess.tickedCh
	times := dialer.dialTimes()
	if len(times) != 3 {
		t.Fatalf("dial attempts = %d, want 3", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap, want := times[i].Sub(times[i-1]), cfg.ConnectBaseDelay*time.Duration(i); gap < want {
			t.Errorf("attempt %d came after %v, want >= %v", i+1, gap, want)
		}
	}
	if st := m.Status(); st.ConnectRetries != 0 {
		t.Errorf("ConnectRetries = %d after success, want 0", st.ConnectRetries)
	}

	cancel()
	_ = waitDone(t, done)
}

func TestManager_TickFailureReconnects(t *testing.T) {
	cfg := fastConfig()
	first := &fakeSession{roster: testRoster(), failAt: 3}
	second := &fakeSession{roster: testRoster(), failAt: 1}
	third := &fakeSession{roster: testRoster(), tickedCh: make(chan int, 1)}
	dialer := &fakeDialer{results: []dialResult{{sess: first}, {sess: second}, {sess: third}}}
	m := NewManager(cfg, dialer)
	out := make(chan models.Event, 32)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runManager(ctx, m, out)

	// Wait for the third session's second tick: the first successful tick
	// resets the counter.
	for third.ticksSoFar() < 2 {
		<-third.tickedCh
	}

	times := dialer.dialTimes()
	if len(times) != 3 {
		t.Fatalf("dial attempts = %d, want 3", len(times))
	}
	if gap := times[2].Sub(times[1]); gap < 2*cfg.ReconnectBaseDelay {
		t.Errorf("second reconnect after %v, want >= %v (retry count should have grown to 2)", gap, 2*cfg.ReconnectBaseDelay)
	}
	if !first.isClosed() || !second.isClosed() {
		t.Error("failed sessions should be closed before reconnecting")
	}
	if st := m.Status(); st.TickRetries != 0 {
		t.Errorf("TickRetries = %d after a good tick, want 0", st.TickRetries)
	}

	cancel()
	_ = waitDone(t, done)

	// Join snapshot is sent once even across reconnects.
	var online int
	for {
		select {
		case ev := <-out:
			if activity(t, ev) {
				online++
			}
			continue
		default:
		}
		break
	}
	if online != 2 {
		t.Errorf("online events = %d, want 2 (snapshot only once)", online)
	}
}

// Players who left during an outage are reported offline once the new
// session is up, and players who joined meanwhile are reported online.
func TestManager_ReconnectReconcilesRoster(t *testing.T) {
	carolID := uuid.MustParse("6f1c2f0e-3a52-4d8e-9c61-0d4d4b7d0a03")
	first := &fakeSession{roster: testRoster(), failAt: 2}
	// Participant ids are session-local: alice comes back under a new uid.
	second := &fakeSession{
		roster: Roster{
			7: {Alias: "alice", ExternalID: aliceID},
			9: {Alias: "carol", ExternalID: carolID},
		},
		tickedCh: make(chan int, 1),
	}
	m := NewManager(fastConfig(), &fakeDialer{results: []dialResult{{sess: first}, {sess: second}}})
	out := make(chan models.Event, 32)

	ctx, cancel := context.WithCancel(context.Background())
	done := runManager(ctx, m, out)

	for second.ticksSoFar() < 3 {
		<-second.tickedCh
	}
	if st := m.Status(); st.RosterSize != 2 {
		t.Errorf("RosterSize = %d, want 2", st.RosterSize)
	}
	cancel()
	if err := waitDone(t, done); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	type change struct {
		id     uuid.UUID
		online bool
	}
	want := []change{
		{aliceID, true}, {bobID, true}, // join snapshot
		{bobID, false}, {carolID, true}, // reconnect
		{aliceID, false}, {carolID, false}, // shutdown drain
	}
	got := collect(t, out, len(want))
	for i, w := range want {
		if got[i].PlayerUUID != w.id || activity(t, got[i]) != w.online {
			t.Errorf("event %d = %s online=%v, want %s online=%v",
				i, got[i].PlayerAlias, activity(t, got[i]), w.id, w.online)
		}
	}

	// Every player that went online was reported offline.
	online := map[uuid.UUID]bool{}
	for _, ev := range got {
		online[ev.PlayerUUID] = activity(t, ev)
	}
	for id, on := range online {
		if on {
			t.Errorf("player %s left online after shutdown", id)
		}
	}
	select {
	case ev := <-out:
		t.Errorf("unexpected extra event %+v", ev)
	default:
	}
}

func TestManager_PanicStillDrains(t *testing.T) {
	sess := &fakeSession{roster: testRoster(), panicAt: 3}
	m := NewManager(fastConfig(), &fakeDialer{results: []dialResult{{sess: sess}}})
	out := make(chan models.Event, 16)

	err := waitDone(t, runManager(context.Background(), m, out))
	if err == nil {
		t.Fatal("Run() should report the panic")
	}

	got := collect(t, out, 4)
	if !activity(t, got[0]) || !activity(t, got[1]) {
		t.Error("first two events should be the join snapshot")
	}
	if activity(t, got[2]) || activity(t, got[3]) {
		t.Error("last two events should be the drain")
	}
}

func TestManager_CancelDuringBackoff(t *testing.T) {
	cfg := fastConfig()
	cfg.ConnectBaseDelay = time.Hour
	m := NewManager(cfg, &fakeDialer{results: []dialResult{{err: errors.New("refused")}}})

	ctx, cancel := context.WithCancel(context.Background())
	done := runManager(ctx, m, make(chan models.Event))
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := waitDone(t, done); err != nil {
		t.Errorf("Run() error = %v, want nil", err)
	}
}

func TestManager_Backoff(t *testing.T) {
	m := NewManager(Config{MaxBackoff: 25 * time.Second}, nil)
	tests := []struct {
		retry int32
		want  time.Duration
	}{
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{3, 25 * time.Second},
		{50, 25 * time.Second},
	}
	for _, tt := range tests {
		if got := m.backoff(10*time.Second, tt.retry); got != tt.want {
			t.Errorf("backoff(10s, %d) = %v, want %v", tt.retry, got, tt.want)
		}
	}

	uncapped := NewManager(Config{}, nil)
	if got := uncapped.backoff(10*time.Second, 50); got != 500*time.Second {
		t.Errorf("uncapped backoff = %v, want 500s", got)
	}
}

func (s *fakeSession) ticksSoFar() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

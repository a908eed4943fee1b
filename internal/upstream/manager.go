// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package upstream owns the connection to the live session source.
//
// A Manager dials the session, drives it at a fixed tick rate, normalizes the
// raw events it yields, and sends them on the ingress channel consumed by the
// persistence writer. Connection failures are retried forever with a linearly
// growing delay. When Run returns, for any reason, the players still on the
// last observed roster are reported offline.
package upstream

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
)

// State is the connector's position in its state machine.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config controls connection and pacing.
type Config struct {
	Address     string
	Credentials Credentials
	Trust       TrustPredicate

	// TickRate is the number of session ticks per second.
	TickRate float64
	// ConnectBaseDelay is multiplied by the consecutive connect failure count.
	ConnectBaseDelay time.Duration
	// ReconnectBaseDelay is multiplied by the consecutive tick failure count.
	ReconnectBaseDelay time.Duration
	// MaxBackoff caps both delays. Zero leaves them uncapped.
	MaxBackoff time.Duration
	// DrainTimeout bounds each ingress send once the context is done.
	DrainTimeout time.Duration
}

// DefaultConfig returns the pacing used by the upstream game client.
func DefaultConfig() Config {
	return Config{
		TickRate:           10,
		ConnectBaseDelay:   500 * time.Millisecond,
		ReconnectBaseDelay: 10 * time.Second,
		DrainTimeout:       2 * time.Second,
	}
}

// Status is a point-in-time view of the manager for health reporting.
type Status struct {
	State          State  `json:"-"`
	StateName      string `json:"state"`
	ConnectRetries int32  `json:"connect_retries"`
	TickRetries    int32  `json:"tick_retries"`
	RosterSize     int32  `json:"roster_size"`
}

// Manager runs the upstream state machine. A Manager is not reusable: call
// Run once per instance.
type Manager struct {
	cfg    Config
	dialer Dialer
	log    zerolog.Logger
	now    func() time.Time

	state          atomic.Int32
	connectRetries atomic.Int32
	tickRetries    atomic.Int32
	rosterSize     atomic.Int32

	// Owned by the Run goroutine.
	session Session
	roster  Roster
	seeded  bool
	// resync is set by a reconnect; the next good tick reconciles roster.
	resync bool
}

// NewManager creates a manager that opens sessions through dialer.
func NewManager(cfg Config, dialer Dialer) *Manager {
	def := DefaultConfig()
	if cfg.TickRate <= 0 {
		cfg.TickRate = def.TickRate
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	if cfg.Trust == nil {
		cfg.Trust = func(string) bool { return false }
	}
	return &Manager{
		cfg:    cfg,
		dialer: dialer,
		log:    logging.WithComponent("upstream"),
		now:    time.Now,
		roster: Roster{},
	}
}

// State returns the current state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// Status returns the state together with the retry counters.
func (m *Manager) Status() Status {
	s := m.State()
	return Status{
		State:          s,
		StateName:      s.String(),
		ConnectRetries: m.connectRetries.Load(),
		TickRetries:    m.tickRetries.Load(),
		RosterSize:     m.rosterSize.Load(),
	}
}

// Run connects and ticks until ctx is done. Normalized events are sent on out,
// blocking while it is full. Run returns nil on cancellation and an error
// only if the tick loop panicked; in both cases the shutdown drain has run.
// Run does not close out.
func (m *Manager) Run(ctx context.Context, out chan<- models.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Upstream tick loop panicked")
			err = fmt.Errorf("upstream manager panic: %v", r)
		}
		m.Drain(ctx, out)
		m.closeSession()
		m.setState(StateDisconnected)
	}()

	if !m.connect(ctx) {
		return nil
	}

	limiter := rate.NewLimiter(rate.Limit(m.cfg.TickRate), 1)
	last := m.now()
	for {
		if ctx.Err() != nil {
			m.log.Info().Msg("Upstream manager stopping")
			return nil
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil
		}

		now := m.now()
		dt := now.Sub(last)
		last = now

		if err := m.tick(ctx, out, dt); err != nil {
			retry := m.tickRetries.Add(1)
			metrics.UpstreamTickErrors.Inc()
			metrics.UpstreamRetryCount.Set(float64(retry))
			m.log.Error().Err(err).Int32("retry", retry).Msg("Failed to tick upstream session")

			m.setState(StateReconnecting)
			m.closeSession()
			if !sleep(ctx, m.backoff(m.cfg.ReconnectBaseDelay, retry)) {
				return nil
			}
			if !m.connect(ctx) {
				return nil
			}
			continue
		}

		if m.tickRetries.Swap(0) != 0 {
			metrics.UpstreamRetryCount.Set(0)
		}
	}
}

// connect dials until a session is established. It returns false if ctx
// ended first.
func (m *Manager) connect(ctx context.Context) bool {
	m.setState(StateConnecting)
	for {
		m.log.Debug().Str("address", m.cfg.Address).Msg("Connecting to upstream")
		sess, err := m.dialer.Dial(ctx, m.cfg.Address, m.cfg.Credentials, m.cfg.Trust)
		metrics.RecordConnectAttempt(err)
		if err == nil {
			m.session = sess
			m.resync = m.seeded
			m.connectRetries.Store(0)
			m.setState(StateConnected)
			m.log.Info().Str("address", m.cfg.Address).Msg("Connected to upstream")
			return true
		}
		if ctx.Err() != nil {
			return false
		}

		retry := m.connectRetries.Add(1)
		m.log.Error().Err(err).Int32("retry", retry).Msg("Failed to connect to upstream")
		if !sleep(ctx, m.backoff(m.cfg.ConnectBaseDelay, retry)) {
			return false
		}
	}
}

func (m *Manager) tick(ctx context.Context, out chan<- models.Event, dt time.Duration) error {
	events, err := m.session.Tick(ctx, dt)
	if err != nil {
		return err
	}

	roster := m.session.Roster()
	if !m.seeded && len(roster) > 0 {
		at := m.now()
		for _, id := range sortedParticipants(roster) {
			info := roster[id]
			m.emit(ctx, out, models.NewActivityEvent(info.Alias, info.ExternalID, at, true))
		}
		m.seeded = true
		m.roster = roster.Clone()
		m.log.Info().Int("players", len(roster)).Msg("Seeded presence from session roster")
	} else if m.resync {
		m.reconcile(ctx, out, roster)
	}
	m.resync = false

	for _, raw := range events {
		switch ev := raw.(type) {
		case NoticeEvent:
			m.log.Debug().Str("text", ev.Text).Msg("Upstream notification")
		case DisconnectNotice:
			m.log.Debug().Msg("Upstream will disconnect soon")
		}

		ev, ok := Normalize(raw, roster, m.now())
		if !ok {
			metrics.UpstreamRawEvents.WithLabelValues("dropped").Inc()
			continue
		}
		metrics.UpstreamRawEvents.WithLabelValues("accepted").Inc()
		m.emit(ctx, out, ev)
	}

	m.session.Cleanup()
	m.roster = m.session.Roster().Clone()
	m.rosterSize.Store(int32(len(m.roster)))
	return nil
}

// emit sends ev, applying backpressure. Once ctx is done the send is bounded
// by DrainTimeout so a stopped writer cannot wedge shutdown.
func (m *Manager) emit(ctx context.Context, out chan<- models.Event, ev models.Event) bool {
	select {
	case out <- ev:
		metrics.RelayIngressDepth.Set(float64(len(out)))
		return true
	case <-ctx.Done():
	}

	timer := time.NewTimer(m.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case out <- ev:
		return true
	case <-timer.C:
		m.log.Warn().
			Str("player_alias", ev.PlayerAlias).
			Str("kind", ev.KindName()).
			Msg("Ingress send timed out during shutdown, event dropped")
		return false
	}
}

func (m *Manager) closeSession() {
	if m.session == nil {
		return
	}
	if err := m.session.Close(); err != nil {
		m.log.Debug().Err(err).Msg("Error closing upstream session")
	}
	m.session = nil
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
	metrics.UpstreamConnectionState.Set(float64(s))
	m.log.Debug().Str("state", s.String()).Msg("Upstream state changed")
}

func (m *Manager) backoff(base time.Duration, retry int32) time.Duration {
	d := base * time.Duration(retry)
	if m.cfg.MaxBackoff > 0 && d > m.cfg.MaxBackoff {
		d = m.cfg.MaxBackoff
	}
	return d
}

// sleep waits for d and reports whether it completed before ctx ended.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func sortedParticipants(r Roster) []ParticipantID {
	ids := make([]ParticipantID, 0, len(r))
	for id := range r {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

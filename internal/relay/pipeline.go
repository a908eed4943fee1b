// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package relay

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/models"
	"github.com/tomtom215/heimdall/internal/upstream"
)

// DefaultIngressCapacity is the size of the queue between connector and writer.
const DefaultIngressCapacity = 256

// Pipeline runs one connector and one writer joined by a bounded ingress
// queue. It implements suture.Service; each Serve starts a fresh connector
// and queue, while the writer (and so the presence tracker) persists across
// restarts.
type Pipeline struct {
	upstreamCfg upstream.Config
	dialer      upstream.Dialer
	writer      *Writer
	capacity    int

	current atomic.Pointer[upstream.Manager]
}

// NewPipeline creates a pipeline. capacity <= 0 selects DefaultIngressCapacity.
func NewPipeline(cfg upstream.Config, dialer upstream.Dialer, writer *Writer, capacity int) *Pipeline {
	if capacity <= 0 {
		capacity = DefaultIngressCapacity
	}
	return &Pipeline{
		upstreamCfg: cfg,
		dialer:      dialer,
		writer:      writer,
		capacity:    capacity,
	}
}

// Serve runs until ctx is done or the connector fails. The ingress queue is
// closed only after the connector, including its shutdown drain, has
// returned, so the writer sees every drained event before it stops.
func (p *Pipeline) Serve(ctx context.Context) error {
	ingress := make(chan models.Event, p.capacity)
	mgr := upstream.NewManager(p.upstreamCfg, p.dialer)
	p.current.Store(mgr)

	logging.Info().Int("ingress_capacity", p.capacity).Msg("Relay pipeline starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.writer.Run(gctx, ingress)
	})
	g.Go(func() error {
		defer close(ingress)
		return mgr.Run(gctx, ingress)
	})

	err := g.Wait()
	if err != nil {
		logging.Error().Err(err).Msg("Relay pipeline stopped with error")
		return err
	}
	logging.Info().Msg("Relay pipeline stopped")
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (p *Pipeline) String() string {
	return "relay-pipeline"
}

// UpstreamStatus reports the running connector's state. Before the first
// Serve it reports disconnected.
func (p *Pipeline) UpstreamStatus() upstream.Status {
	if mgr := p.current.Load(); mgr != nil {
		return mgr.Status()
	}
	return upstream.Status{State: upstream.StateDisconnected, StateName: upstream.StateDisconnected.String()}
}

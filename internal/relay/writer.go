// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package relay connects the upstream connector to storage and live
// subscribers.
//
// The Writer is the single serialization point: it resolves player identity,
// persists messages and activity, mutates the presence tracker and publishes
// envelopes, one event at a time in ingress order.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
	"github.com/tomtom215/heimdall/internal/presence"
)

// Store is the subset of the database the writer needs.
type Store interface {
	UpsertPlayer(ctx context.Context, externalID uuid.UUID, alias string) (int64, error)
	InsertMessage(ctx context.Context, playerID int64, at time.Time, content string, kind models.MessageKind) (int64, error)
	InsertActivity(ctx context.Context, playerID int64, at time.Time, online bool) error
}

// Publisher receives every persisted envelope.
type Publisher interface {
	Publish(env models.Envelope) int
}

// DeadLetterSink keeps events whose store writes exhausted their retries.
type DeadLetterSink interface {
	Record(ctx context.Context, stage string, ev models.Event, attempts int, cause error) error
}

// Store operation names used for metrics, logs and dead-letter stages.
const (
	OpUpsertPlayer   = "upsert_player"
	OpInsertMessage  = "insert_message"
	OpInsertActivity = "insert_activity"
)

// WriterConfig tunes retries and shutdown draining.
type WriterConfig struct {
	// RetryAttempts is the total number of tries per store operation.
	RetryAttempts int
	// RetryDelay is multiplied by the attempt number between tries.
	RetryDelay time.Duration
	// OpTimeout bounds a single store call.
	OpTimeout time.Duration
	// DrainTimeout bounds each receive once the context is done.
	DrainTimeout time.Duration
}

// DefaultWriterConfig returns the defaults used when fields are zero.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		RetryAttempts: 3,
		RetryDelay:    100 * time.Millisecond,
		OpTimeout:     5 * time.Second,
		DrainTimeout:  3 * time.Second,
	}
}

// Writer applies ingress events. It is the only mutator of the presence
// tracker it is given.
type Writer struct {
	cfg      WriterConfig
	store    Store
	presence *presence.Tracker
	pub      Publisher
	dlq      DeadLetterSink
	log      zerolog.Logger
}

// NewWriter creates a writer. dlq may be nil, in which case events that
// cannot be stored are logged and dropped.
func NewWriter(cfg WriterConfig, store Store, tracker *presence.Tracker, pub Publisher, dlq DeadLetterSink) *Writer {
	def := DefaultWriterConfig()
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = def.RetryAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = def.OpTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = def.DrainTimeout
	}
	return &Writer{
		cfg:      cfg,
		store:    store,
		presence: tracker,
		pub:      pub,
		dlq:      dlq,
		log:      logging.WithComponent("writer"),
	}
}

// Run applies events from in until it is closed. Once ctx is done the writer
// keeps draining, giving up if no event arrives within DrainTimeout.
func (w *Writer) Run(ctx context.Context, in <-chan models.Event) error {
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				w.log.Info().Msg("Ingress closed, writer stopping")
				return nil
			}
			w.apply(ctx, ev, len(in))
		case <-ctx.Done():
			return w.drain(ctx, in)
		}
	}
}

func (w *Writer) drain(ctx context.Context, in <-chan models.Event) error {
	applied := 0
	timer := time.NewTimer(w.cfg.DrainTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-in:
			if !ok {
				w.log.Info().Int("drained", applied).Msg("Ingress closed after shutdown drain")
				return nil
			}
			w.apply(ctx, ev, len(in))
			applied++
			timer.Reset(w.cfg.DrainTimeout)
		case <-timer.C:
			w.log.Warn().
				Int("drained", applied).
				Int("abandoned", len(in)).
				Msg("Shutdown drain timed out")
			return nil
		}
	}
}

func (w *Writer) apply(ctx context.Context, ev models.Event, depth int) {
	metrics.RelayIngressDepth.Set(float64(depth))
	if err := w.Apply(ctx, ev); err != nil {
		w.log.Error().Err(err).
			Str("kind", ev.KindName()).
			Str("player_alias", ev.PlayerAlias).
			Msg("Event was not persisted")
	}
}

// Apply turns one event into persisted state. Store calls run detached from
// ctx cancellation so events received during shutdown are still written.
func (w *Writer) Apply(ctx context.Context, ev models.Event) error {
	kind := ev.KindName()

	var playerID int64
	attempts, err := w.retry(ctx, OpUpsertPlayer, func(ctx context.Context) error {
		id, err := w.store.UpsertPlayer(ctx, ev.PlayerUUID, ev.PlayerAlias)
		playerID = id
		return err
	})
	if err != nil {
		w.deadLetter(ctx, OpUpsertPlayer, ev, attempts, err)
		return fmt.Errorf("resolve player %s: %w", ev.PlayerUUID, err)
	}

	switch p := ev.Payload.(type) {
	case models.MessagePayload:
		var msgID int64
		attempts, err := w.retry(ctx, OpInsertMessage, func(ctx context.Context) error {
			id, err := w.store.InsertMessage(ctx, playerID, ev.Time, p.Content, p.Kind)
			msgID = id
			return err
		})
		if err != nil {
			w.deadLetter(ctx, OpInsertMessage, ev, attempts, err)
			return fmt.Errorf("insert message for player %d: %w", playerID, err)
		}
		w.pub.Publish(models.MessageEnvelope(models.Message{
			ID:       msgID,
			PlayerID: playerID,
			Content:  p.Content,
			Kind:     p.Kind,
			Time:     ev.Time,
		}))
		metrics.RecordRelayEvent(kind, "persisted")
		return nil

	case models.ActivityPayload:
		// Presence and the broadcast must agree even if the row is lost.
		if !w.presence.SetOnline(playerID, p.Online) {
			w.log.Debug().
				Int64("player_id", playerID).
				Bool("online", p.Online).
				Msg("Repeated presence transition")
		}
		metrics.PresenceOnlinePlayers.Set(float64(w.presence.Len()))

		record := models.ActivityRecord{PlayerID: playerID, Time: ev.Time, Online: p.Online}
		attempts, err := w.retry(ctx, OpInsertActivity, func(ctx context.Context) error {
			return w.store.InsertActivity(ctx, playerID, ev.Time, p.Online)
		})
		w.pub.Publish(models.ActivityEnvelope(record))
		if err != nil {
			w.deadLetter(ctx, OpInsertActivity, ev, attempts, err)
			return fmt.Errorf("insert activity for player %d: %w", playerID, err)
		}
		metrics.RecordRelayEvent(kind, "persisted")
		return nil

	default:
		metrics.RecordRelayEvent(kind, "dropped")
		return fmt.Errorf("unsupported payload %T", ev.Payload)
	}
}

// retry runs fn up to RetryAttempts times with a linearly growing pause. The
// writer is sequential, so retrying in place cannot reorder events.
func (w *Writer) retry(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	base := context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= w.cfg.RetryAttempts; attempt++ {
		opCtx, cancel := context.WithTimeout(base, w.cfg.OpTimeout)
		start := time.Now()
		err = fn(opCtx)
		cancel()
		metrics.RecordStoreOperation(op, time.Since(start), err)
		if err == nil {
			return attempt, nil
		}

		w.log.Warn().Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Int("max_attempts", w.cfg.RetryAttempts).
			Msg("Store operation failed")
		if attempt < w.cfg.RetryAttempts && w.cfg.RetryDelay > 0 {
			time.Sleep(w.cfg.RetryDelay * time.Duration(attempt))
		}
	}
	return w.cfg.RetryAttempts, err
}

func (w *Writer) deadLetter(ctx context.Context, stage string, ev models.Event, attempts int, cause error) {
	if w.dlq == nil {
		metrics.RecordRelayEvent(ev.KindName(), "dropped")
		return
	}
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.OpTimeout)
	defer cancel()
	if err := w.dlq.Record(opCtx, stage, ev, attempts, cause); err != nil {
		w.log.Error().Err(err).Str("stage", stage).Msg("Failed to journal event")
		metrics.RecordRelayEvent(ev.KindName(), "dropped")
		return
	}
	metrics.RecordRelayEvent(ev.KindName(), "journaled")
}

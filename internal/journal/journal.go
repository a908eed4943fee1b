// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package journal is a BadgerDB-backed dead-letter store for events whose
// store writes exhausted their retries. Entries are kept until an operator
// deletes them; nothing is replayed automatically.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/heimdall/internal/config"
	"github.com/tomtom215/heimdall/internal/logging"
	"github.com/tomtom215/heimdall/internal/metrics"
	"github.com/tomtom215/heimdall/internal/models"
)

var (
	ErrJournalClosed = errors.New("journal is closed")
	ErrEntryNotFound = errors.New("journal entry not found")
)

const (
	keyPrefix = "dlq:"

	// DefaultListLimit applies when List is called with a non-positive limit.
	DefaultListLimit = 100

	closeTimeout = 30 * time.Second
)

// Entry is one dead-lettered event.
type Entry struct {
	ID         string       `json:"id"`
	Stage      string       `json:"stage"`
	Error      string       `json:"error"`
	Attempts   int          `json:"attempts"`
	RecordedAt time.Time    `json:"recorded_at"`
	Event      models.Event `json:"event"`
}

// Journal stores dead-lettered events in BadgerDB under keys of the form
// dlq:<unix-nanos>:<uuid>, so iteration order is recording order.
type Journal struct {
	db       *badger.DB
	inMemory bool
	log      zerolog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal described by cfg.
func Open(cfg *config.JournalConfig) (*Journal, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	j := &Journal{
		db:       db,
		inMemory: cfg.InMemory,
		log:      logging.WithComponent("journal"),
		now:      time.Now,
	}
	count, err := j.Count(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	metrics.JournalEntries.Set(float64(count))

	j.log.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int("entries", count).
		Msg("Journal opened")
	return j, nil
}

func (j *Journal) checkOpen() error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}
	return nil
}

// Record appends ev with the failing stage and cause. It does not observe
// ctx cancellation so events failing during the shutdown drain are kept.
func (j *Journal) Record(_ context.Context, stage string, ev models.Event, attempts int, cause error) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	at := j.now().UTC()
	entry := Entry{
		ID:         fmt.Sprintf("%020d:%s", at.UnixNano(), uuid.New()),
		Stage:      stage,
		Attempts:   attempts,
		RecordedAt: at,
		Event:      ev,
	}
	if cause != nil {
		entry.Error = cause.Error()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+entry.ID), data)
	})
	if err != nil {
		return fmt.Errorf("write to BadgerDB: %w", err)
	}

	metrics.JournalEntries.Inc()
	metrics.JournalRecorded.WithLabelValues(stage).Inc()
	j.log.Warn().
		Str("id", entry.ID).
		Str("stage", stage).
		Str("player_alias", ev.PlayerAlias).
		Int("attempts", attempts).
		Msg("Event dead-lettered")
	return nil
}

// List returns up to limit entries, newest first. Ids lead with the record
// time, so key order is recording order.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if err := j.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	entries := make([]Entry, 0)
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek([]byte(keyPrefix + "\xff")); it.ValidForPrefix(prefix) && len(entries) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var entry Entry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &entry)
			})
			if err != nil {
				j.log.Warn().Err(err).Str("key", string(item.Key())).Msg("Failed to unmarshal journal entry")
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate journal entries: %w", err)
	}
	return entries, nil
}

// Delete removes the entry with the given id.
func (j *Journal) Delete(ctx context.Context, id string) error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if id == "" || strings.Contains(id, "/") {
		return ErrEntryNotFound
	}
	key := []byte(keyPrefix + id)
	err := j.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrEntryNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		return err
	}
	metrics.JournalEntries.Dec()
	return nil
}

// Count returns the number of stored entries.
func (j *Journal) Count(ctx context.Context) (int, error) {
	if err := j.checkOpen(); err != nil {
		return 0, err
	}
	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count journal entries: %w", err)
	}
	return count, nil
}

// Close closes the underlying database. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	j.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- j.db.Close()
	}()

	timer := time.NewTimer(closeTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		j.log.Info().Msg("Journal closed")
		return nil
	case <-timer.C:
		return fmt.Errorf("badgerdb close timeout after %v", closeTimeout)
	}
}

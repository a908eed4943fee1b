// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	// DefaultGCInterval is how often Serve runs value-log GC.
	DefaultGCInterval = 10 * time.Minute

	gcDiscardRatio = 0.5
)

// RunGC rewrites value-log files until BadgerDB reports nothing to reclaim.
func (j *Journal) RunGC() error {
	if err := j.checkOpen(); err != nil {
		return err
	}
	if j.inMemory {
		return nil
	}
	for {
		err := j.db.RunValueLogGC(gcDiscardRatio)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Serve runs RunGC every DefaultGCInterval until ctx is done. It implements
// suture.Service.
func (j *Journal) Serve(ctx context.Context) error {
	ticker := time.NewTicker(DefaultGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := j.RunGC(); err != nil {
				if errors.Is(err, ErrJournalClosed) {
					return err
				}
				j.log.Warn().Err(err).Msg("Journal GC failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (j *Journal) String() string {
	return "journal-gc"
}

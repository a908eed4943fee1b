// Heimdall - Live Session Relay and Activity Log
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/heimdall

// Package broadcast implements a lossy multicast channel.
//
// All subscribers share one ring of the most recent items. Publishing never
// blocks: a subscriber that falls more than the ring capacity behind is moved
// forward to the oldest item still buffered, and the skipped count is added to
// its Dropped total. Items published while nobody is subscribed are discarded.
package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/heimdall/internal/metrics"
)

// DefaultCapacity matches the ingress queue size.
const DefaultCapacity = 256

// ErrClosed is returned by Recv once the fan-out has been closed and the
// subscriber has consumed everything still buffered, or after Unsubscribe.
var ErrClosed = errors.New("broadcast: closed")

// Fanout is a multi-subscriber broadcast of T values.
type Fanout[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   uint64 // sequence number of the next published item
	notify chan struct{}
	subs   map[*Subscription[T]]struct{}
	closed bool
}

// New creates a fan-out whose subscribers may lag at most capacity items.
func New[T any](capacity int) *Fanout[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Fanout[T]{
		ring:   make([]T, capacity),
		notify: make(chan struct{}),
		subs:   make(map[*Subscription[T]]struct{}),
	}
}

// Publish delivers v to every current subscriber and returns how many there
// were. With no subscribers the value is dropped and 0 is returned.
func (f *Fanout[T]) Publish(v T) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || len(f.subs) == 0 {
		return 0
	}

	f.ring[f.head%uint64(len(f.ring))] = v
	f.head++
	close(f.notify)
	f.notify = make(chan struct{})
	metrics.FanoutPublished.Inc()
	return len(f.subs)
}

// Subscribe attaches a new subscriber. It observes only items published after
// this call.
func (f *Fanout[T]) Subscribe() *Subscription[T] {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := &Subscription[T]{f: f, next: f.head}
	if f.closed {
		s.detached = true
		return s
	}
	f.subs[s] = struct{}{}
	metrics.FanoutSubscribers.Set(float64(len(f.subs)))
	return s
}

// Subscribers returns the number of attached subscribers.
func (f *Fanout[T]) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Close stops accepting items. Subscribers still receive what is buffered for
// them and then get ErrClosed.
func (f *Fanout[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.notify)
}

// Subscription is a private receive handle. Recv must not be called from
// more than one goroutine at a time.
type Subscription[T any] struct {
	f        *Fanout[T]
	next     uint64
	dropped  uint64
	detached bool
}

// Recv returns the next item, waiting until one is published, the fan-out is
// closed, or ctx is done.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	f := s.f
	for {
		f.mu.Lock()
		if s.detached {
			f.mu.Unlock()
			return zero, ErrClosed
		}

		capacity := uint64(len(f.ring))
		if f.head-s.next > capacity {
			oldest := f.head - capacity
			skipped := oldest - s.next
			s.dropped += skipped
			s.next = oldest
			metrics.FanoutLagged.Add(float64(skipped))
		}

		if s.next < f.head {
			v := f.ring[s.next%capacity]
			s.next++
			f.mu.Unlock()
			return v, nil
		}

		if f.closed {
			f.mu.Unlock()
			return zero, ErrClosed
		}
		wait := f.notify
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-wait:
		}
	}
}

// Dropped returns how many items this subscriber has skipped by lagging.
func (s *Subscription[T]) Dropped() uint64 {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	return s.dropped
}

// Unsubscribe detaches the subscriber. It is safe to call more than once.
func (s *Subscription[T]) Unsubscribe() {
	f := s.f
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.detached {
		return
	}
	s.detached = true
	delete(f.subs, s)
	metrics.FanoutSubscribers.Set(float64(len(f.subs)))
}

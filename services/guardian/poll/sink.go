// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package poll

import (
	"sync"
	"time"
)

// Sink receives published values.
type Sink[T any] interface {
	Publish(v T)
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(v T)

// Publish implements Sink.
func (f SinkFunc[T]) Publish(v T) { f(v) }

// Fanout publishes to every sink in order.
type Fanout[T any] []Sink[T]

// Publish implements Sink.
func (f Fanout[T]) Publish(v T) {
	for _, s := range f {
		s.Publish(v)
	}
}

// Latest keeps the most recently published value.
//
// Thread Safety: Safe for concurrent use; the loop publishes while HTTP
// handlers read.
type Latest[T any] struct {
	mu    sync.RWMutex
	value T
	at    time.Time
	ok    bool
	now   func() time.Time
}

// NewLatest creates an empty Latest sink.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{now: time.Now}
}

// Publish implements Sink.
func (l *Latest[T]) Publish(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = v
	l.at = l.now()
	l.ok = true
}

// Get returns the latest value and when it was published. The bool is
// false before the first Publish.
func (l *Latest[T]) Get() (T, time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.at, l.ok
}

// Broadcast delivers published values to subscribers.
//
// Each subscriber has a one-slot buffer holding the newest undelivered
// value; a slow subscriber misses intermediate values instead of blocking
// the publisher.
//
// Thread Safety: Safe for concurrent use.
type Broadcast[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// NewBroadcast creates a Broadcast with no subscribers.
func NewBroadcast[T any]() *Broadcast[T] {
	return &Broadcast[T]{subs: make(map[chan T]struct{})}
}

// Subscribe returns a channel of published values and a function that
// unsubscribes and closes the channel.
func (b *Broadcast[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// Subscribers returns the number of active subscribers.
func (b *Broadcast[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish implements Sink.
func (b *Broadcast[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Replace the stale value with the newest one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

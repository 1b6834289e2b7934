// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache memoizes per-document results for a short TTL.
//
// Entries are only valid for the document that produced them. The first Get
// or Set that names a different document drops every entry, so results from
// a closed or switched document are never served.
//
// # Thread Safety
//
// A Cache is not safe for concurrent use. It is owned by the main loop
// together with the scene graph it summarizes.
package cache

import (
	"context"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// DefaultTTL is how long an entry stays valid.
const DefaultTTL = 500 * time.Millisecond

type entry[V any] struct {
	value  V
	stored time.Time
}

// Stats are cumulative counters for one cache.
type Stats struct {
	Hits   int64
	Misses int64
	Purges int64
}

// Cache is a per-document TTL cache keyed by string.
type Cache[V any] struct {
	ttl  time.Duration
	now  func() time.Time
	name string

	doc     scene.DocumentID
	entries map[string]entry[V]
	stats   Stats
}

// Option configures a Cache.
type Option func(*config)

type config struct {
	ttl  time.Duration
	now  func() time.Time
	name string
}

// WithTTL sets the entry lifetime. ttl <= 0 uses DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WithName labels the cache in metrics. Default: "default".
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// New creates an empty cache.
//
// Example:
//
//	results := cache.New[detect.CheckResult](cache.WithName("checks"))
//	if r, ok := results.Get(doc.ID(), "lights"); ok {
//	    return r
//	}
func New[V any](opts ...Option) *Cache[V] {
	cfg := config{
		ttl:  DefaultTTL,
		now:  time.Now,
		name: "default",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[V]{
		ttl:     cfg.ttl,
		now:     cfg.now,
		name:    cfg.name,
		entries: make(map[string]entry[V]),
	}
}

// Get returns the value stored for key in doc if it is younger than the TTL.
//
// Description:
//
//	If doc differs from the document the cache currently holds, every
//	entry is dropped first and the call is a miss. An expired entry is
//	removed on access.
//
// Inputs:
//   - doc: The active document.
//   - key: The entry key.
//
// Outputs:
//   - V: The cached value, or the zero value on a miss.
//   - bool: True on a hit.
func (c *Cache[V]) Get(doc scene.DocumentID, key string) (V, bool) {
	var zero V
	c.observe(doc)

	e, ok := c.entries[key]
	if !ok {
		c.miss()
		return zero, false
	}
	if c.now().Sub(e.stored) >= c.ttl {
		delete(c.entries, key)
		c.miss()
		return zero, false
	}

	c.stats.Hits++
	recordLookup(context.Background(), c.name, true)
	return e.value, true
}

// Set stores value for key in doc, stamped with the current time.
func (c *Cache[V]) Set(doc scene.DocumentID, key string, value V) {
	c.observe(doc)
	c.entries[key] = entry[V]{value: value, stored: c.now()}
}

// Delete removes one entry.
func (c *Cache[V]) Delete(key string) {
	delete(c.entries, key)
}

// Purge drops every entry.
func (c *Cache[V]) Purge() {
	if len(c.entries) == 0 {
		return
	}
	clear(c.entries)
	c.stats.Purges++
	recordPurge(context.Background(), c.name)
}

// Len returns the number of stored entries, including expired ones not yet
// accessed.
func (c *Cache[V]) Len() int {
	return len(c.entries)
}

// Document returns the document the cache currently holds entries for.
func (c *Cache[V]) Document() scene.DocumentID {
	return c.doc
}

// Stats returns cumulative counters.
func (c *Cache[V]) Stats() Stats {
	return c.stats
}

func (c *Cache[V]) observe(doc scene.DocumentID) {
	if doc == c.doc {
		return
	}
	c.Purge()
	c.doc = doc
}

func (c *Cache[V]) miss() {
	c.stats.Misses++
	recordLookup(context.Background(), c.name, false)
}

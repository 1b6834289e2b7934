// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T) (*Cache[int], *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return New[int](WithClock(clock.now), WithName("test")), clock
}

func TestCache_HitWithinTTL(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("doc", "lights", 3)
	clock.advance(499 * time.Millisecond)

	v, ok := c.Get("doc", "lights")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, Stats{Hits: 1}, c.Stats())
}

func TestCache_MissAfterTTL(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("doc", "lights", 3)
	clock.advance(DefaultTTL)

	_, ok := c.Get("doc", "lights")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry removed on access")
}

func TestCache_DocumentChangeClears(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("doc-a", "lights", 1)
	c.Set("doc-a", "presets", 2)
	require.Equal(t, 2, c.Len())

	_, ok := c.Get("doc-b", "lights")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "all entries dropped eagerly")
	assert.Equal(t, "doc-b", string(c.Document()))

	_, ok = c.Get("doc-a", "presets")
	assert.False(t, ok, "switching back does not resurrect entries")
	assert.Equal(t, int64(1), c.Stats().Purges)
}

func TestCache_SetOnNewDocumentClears(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("doc-a", "lights", 1)
	c.Set("doc-b", "presets", 2)

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("doc-b", "lights")
	assert.False(t, ok)
}

func TestCache_Refresh(t *testing.T) {
	c, clock := newTestCache(t)

	c.Set("doc", "k", 1)
	clock.advance(400 * time.Millisecond)
	c.Set("doc", "k", 2)
	clock.advance(400 * time.Millisecond)

	v, ok := c.Get("doc", "k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestCache_PurgeAndDelete(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set("doc", "a", 1)
	c.Set("doc", "b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
	c.Purge()
	assert.Equal(t, int64(1), c.Stats().Purges, "purging an empty cache is not counted")
}

func TestCache_CustomTTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[string](WithClock(clock.now), WithTTL(2*time.Second))

	c.Set("doc", "k", "v")
	clock.advance(1500 * time.Millisecond)
	_, ok := c.Get("doc", "k")
	assert.True(t, ok)
}

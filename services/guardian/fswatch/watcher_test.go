// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) handle(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]Change(nil), changes...))
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, b := range r.batches {
		for _, c := range b {
			out = append(out, filepath.Base(c.Path))
		}
	}
	return out
}

func startWatcher(t *testing.T, dir string, rec *recorder, opts ...Option) {
	t.Helper()
	w, err := New([]string{dir}, rec.handle, opts...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startWatcher(t, dir, rec, WithDebounce(150*time.Millisecond), WithFilter(MatchExt(".exr")))

	path := filepath.Join(dir, "beauty.EXR")
	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte(i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	require.Eventually(t, func() bool { return len(rec.paths()) > 0 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, []string{"beauty.EXR"}, rec.paths(), "one change per path, filtered")
}

func TestWatcher_NewRejectsMissingDir(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "missing")}, func([]Change) {})
	assert.Error(t, err)
}

func TestMatchers(t *testing.T) {
	exr := MatchExt(".exr")
	assert.True(t, exr("/cache/a.exr"))
	assert.True(t, exr("/cache/a.EXR"))
	assert.False(t, exr("/cache/a.png"))

	file := MatchFile("/scenes/shot.yaml")
	assert.True(t, file("/scenes/./shot.yaml"))
	assert.False(t, file("/scenes/other.yaml"))

	assert.False(t, notTemp("/x/.shot.yaml.swp"))
	assert.False(t, notTemp("/x/shot.yaml~"))
	assert.True(t, notTemp("/x/shot.yaml"))
}

func TestDedupe(t *testing.T) {
	got := dedupe([]Change{
		{Path: "a", Op: OpCreate},
		{Path: "b", Op: OpCreate},
		{Path: "a", Op: OpWrite},
	})
	assert.Equal(t, []Change{{Path: "a", Op: OpWrite}, {Path: "b", Op: OpCreate}}, got)
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "create", OpCreate.String())
	assert.Equal(t, "rename", OpRename.String())
	assert.Equal(t, "unknown", Op(99).String())
}

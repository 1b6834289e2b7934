// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSnapshot creates an .exr in the snapshot directory with the given
// modification time.
func (e *cliEnv) writeSnapshot(t *testing.T, name string, mtime time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(e.cfg.Snapshot.Dir, 0o755))
	path := filepath.Join(e.cfg.Snapshot.Dir, name)
	require.NoError(t, os.WriteFile(path, []byte("exr:"+name), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestSnapshotProcess(t *testing.T) {
	e := newCLIEnv(t)
	e.writeSnapshot(t, "a.exr", time.Now().Add(-time.Minute))

	out, _, code := e.run(t, "snapshot", "process", "-s", e.scenePath)

	require.Equal(t, 0, code)
	assert.Contains(t, out, "OK: saved ")
	assert.Contains(t, out, "source\ta.exr\n")

	matches, err := filepath.Glob(filepath.Join(e.dir, "Output", "Unknown", "*", "shot_010.png"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "exr:a.exr", string(data))

	// The ledger is on disk, so a second run skips the same snapshot.
	_, errOut, code := e.run(t, "snapshot", "process", "-s", e.scenePath)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "snapshot already processed")
}

func TestSnapshotProcess_UsesArtist(t *testing.T) {
	e := newCLIEnv(t)
	e.writeSnapshot(t, "a.exr", time.Now().Add(-time.Minute))
	_, _, code := e.run(t, "artist", "Dana")
	require.Equal(t, 0, code)

	_, _, code = e.run(t, "snapshot", "process", "-s", e.scenePath)

	require.Equal(t, 0, code)
	matches, err := filepath.Glob(filepath.Join(e.dir, "Output", "Dana", "*", "shot_010.png"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSnapshotProcess_Empty(t *testing.T) {
	e := newCLIEnv(t)

	_, errOut, code := e.run(t, "snapshot", "process", "-s", e.scenePath)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no snapshots found")
}

func TestSnapshotList(t *testing.T) {
	e := newCLIEnv(t)

	out, _, code := e.run(t, "snapshot", "list")
	require.Equal(t, 0, code)
	assert.Empty(t, out)

	now := time.Now()
	e.writeSnapshot(t, "old.exr", now.Add(-2*time.Hour))
	e.writeSnapshot(t, "new.exr", now.Add(-time.Hour))

	out, _, code = e.run(t, "snapshot", "list")
	require.Equal(t, 0, code)
	newAt := strings.Index(out, "\tnew.exr\n")
	oldAt := strings.Index(out, "\told.exr\n")
	require.GreaterOrEqual(t, newAt, 0, out)
	require.GreaterOrEqual(t, oldAt, 0, out)
	assert.Less(t, newAt, oldAt)
}

func TestSnapshotCleanup(t *testing.T) {
	e := newCLIEnv(t)
	now := time.Now()
	e.writeSnapshot(t, "a.exr", now.Add(-3*time.Hour))
	e.writeSnapshot(t, "b.exr", now.Add(-2*time.Hour))
	keep := e.writeSnapshot(t, "c.exr", now.Add(-time.Hour))

	out, _, code := e.run(t, "snapshot", "cleanup", "--keep", "1")

	require.Equal(t, 0, code)
	assert.Equal(t, "OK: removed 2 snapshots, kept 1\n", out)
	entries, err := os.ReadDir(e.cfg.Snapshot.Dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(keep), entries[0].Name())
}

func TestSnapshot_NotConfigured(t *testing.T) {
	e := newCLIEnv(t)
	cfg := e.cfg
	cfg.Snapshot.Dir = ""
	require.NoError(t, config.Save(e.configPath, cfg))

	_, errOut, code := e.run(t, "snapshot", "list")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "snapshots not configured")
}

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
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listeningRe = regexp.MustCompile(`listening on (http://\S+)`)

// startServe runs "guardian serve" on an ephemeral port and returns its
// base URL. The server stops when the test ends.
func (e *cliEnv) startServe(t *testing.T, args ...string) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	var out, errOut syncBuffer
	full := append([]string{
		"--config", e.configPath,
		"--personality", "machine",
		"--log-level", "error",
		"serve", "--addr", "127.0.0.1:0",
	}, args...)

	done := make(chan int, 1)
	go func() { done <- run(ctx, full, &out, &errOut) }()
	t.Cleanup(func() {
		cancel()
		select {
		case code := <-done:
			assert.Equal(t, 0, code, errOut.String())
		case <-time.After(10 * time.Second):
			t.Error("serve did not stop")
		}
	})

	var base string
	require.Eventually(t, func() bool {
		m := listeningRe.FindStringSubmatch(out.String())
		if m == nil {
			return false
		}
		base = m[1]
		return true
	}, 5*time.Second, 20*time.Millisecond, errOut.String())
	return base
}

func getHealth(t *testing.T, base string) guardian.HealthResponse {
	t.Helper()
	resp, err := http.Get(base + "/v1/guardian/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health guardian.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	return health
}

func TestServe_Health(t *testing.T) {
	e := newCLIEnv(t)
	base := e.startServe(t, "-s", e.scenePath)

	assert.Equal(t, "healthy", getHealth(t, base).Status)
}

func TestServe_NoScene(t *testing.T) {
	e := newCLIEnv(t)
	base := e.startServe(t)

	assert.Equal(t, "degraded", getHealth(t, base).Status)
}

func TestServe_FilesSnapshots(t *testing.T) {
	e := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(e.cfg.Snapshot.Dir, 0o755))
	e.startServe(t, "-s", e.scenePath)

	// Give the snapshot watcher time to register the directory.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(e.cfg.Snapshot.Dir, "a.exr"), []byte("exr"), 0o644))

	assert.Eventually(t, func() bool {
		matches, _ := filepath.Glob(filepath.Join(e.dir, "Output", "Unknown", "*", "shot_010.png"))
		return len(matches) == 1
	}, 5*time.Second, 50*time.Millisecond)
}

func TestServe_AddrInUse(t *testing.T) {
	e := newCLIEnv(t)
	base := e.startServe(t)
	addr := base[len("http://"):]

	_, errOut, code := e.run(t, "serve", "--addr", addr)

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "failed to listen on")
}

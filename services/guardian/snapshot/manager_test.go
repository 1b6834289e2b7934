// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/fswatch"
	"github.com/AleutianAI/guardian/services/guardian/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 7, 14, 30, 0, 0, time.UTC)

func newLedger(t *testing.T) *badger.Ledger {
	t.Helper()
	db, err := badger.Open(badger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return badger.NewLedger(db, "snapshots", 0)
}

// copyConverter writes a small PNG stand-in and counts calls.
type copyConverter struct {
	mu    sync.Mutex
	calls int
	err   error
	write bool
}

func (c *copyConverter) Convert(_ context.Context, src, dst string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.write {
		data, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return err
		}
	}
	return c.err
}

func writeSnapshot(t *testing.T, dir, name string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func newManager(t *testing.T, conv Converter, opts ...Option) (*Manager, string) {
	t.Helper()
	cache := filepath.Join(t.TempDir(), "cache")
	require.NoError(t, os.MkdirAll(cache, 0o755))
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	return New(cache, conv, newLedger(t), opts...), cache
}

func TestLatest(t *testing.T) {
	m, cache := newManager(t, &copyConverter{})

	_, err := m.Latest()
	assert.ErrorIs(t, err, ErrNoSnapshots)

	base := time.Now().Add(-time.Hour)
	writeSnapshot(t, cache, "old.exr", base)
	newest := writeSnapshot(t, cache, "newest.EXR", base.Add(2*time.Minute))
	writeSnapshot(t, cache, "mid.exr", base.Add(time.Minute))
	writeSnapshot(t, cache, "ignored.png", base.Add(time.Hour))

	f, err := m.Latest()
	require.NoError(t, err)
	assert.Equal(t, newest, f.Path)

	files, err := m.List()
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestLatest_MissingDirectory(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "nope"), &copyConverter{}, newLedger(t))
	_, err := m.Latest()
	assert.ErrorIs(t, err, ErrNoSnapshots)
}

func TestOutputDir(t *testing.T) {
	project := t.TempDir()
	fallback := t.TempDir()
	m, _ := newManager(t, &copyConverter{}, WithFallbackRoot(fallback))

	tests := []struct {
		name    string
		docPath string
		artist  string
		want    string
	}{
		{"saved document", project, "Ana", filepath.Join(project, "Output", "Ana", "250307")},
		{"no artist", project, "", filepath.Join(project, "Output", "Unknown", "250307")},
		{"unsafe artist", project, "a/b", filepath.Join(project, "Output", "a_b", "250307")},
		{"unsaved document", "", "Ana", filepath.Join(fallback, "Ana", "250307")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.OutputDir(tt.docPath, tt.artist, testNow)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.DirExists(t, got)
		})
	}
}

func TestOutputDir_NoFallback(t *testing.T) {
	m, _ := newManager(t, &copyConverter{})
	_, err := m.OutputDir("", "Ana", testNow)
	assert.ErrorIs(t, err, ErrNoOutputRoot)
}

func TestProcess(t *testing.T) {
	conv := &copyConverter{write: true}
	m, cache := newManager(t, conv)
	project := t.TempDir()
	src := writeSnapshot(t, cache, "rv_0001.exr", time.Now().Add(-time.Minute))

	req := Request{DocPath: project, DocName: "shot_010.c4d", Artist: "Ana"}
	res, err := m.Process(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, src, res.Source.Path)
	assert.Equal(t, filepath.Join(project, "Output", "Ana", "250307", "shot_010.png"), res.Output)
	assert.FileExists(t, res.Output)
	assert.Empty(t, res.Warning)

	_, err = m.Process(context.Background(), req)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	assert.Equal(t, 1, conv.calls)

	// Re-rendering to the same path is a new snapshot.
	later := time.Now()
	require.NoError(t, os.Chtimes(src, later, later))
	_, err = m.Process(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, conv.calls)
}

func TestProcess_UnsavedDocumentIsUntitled(t *testing.T) {
	fallback := t.TempDir()
	m, cache := newManager(t, &copyConverter{write: true}, WithFallbackRoot(fallback))
	writeSnapshot(t, cache, "a.exr", time.Now())

	res, err := m.Process(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fallback, "Unknown", "250307", "untitled.png"), res.Output)
}

func TestProcess_ConversionFailed(t *testing.T) {
	conv := &copyConverter{err: errors.New("exit status 1")}
	m, cache := newManager(t, conv)
	writeSnapshot(t, cache, "a.exr", time.Now())
	req := Request{DocPath: t.TempDir(), DocName: "shot.c4d"}

	_, err := m.Process(context.Background(), req)
	require.ErrorIs(t, err, ErrConversionFailed)

	// Not recorded, so a retry converts again.
	_, err = m.Process(context.Background(), req)
	require.ErrorIs(t, err, ErrConversionFailed)
	assert.Equal(t, 2, conv.calls)
}

func TestProcess_FailureWithOutputIsAccepted(t *testing.T) {
	conv := &copyConverter{write: true, err: errors.New("libpng warning")}
	m, cache := newManager(t, conv)
	writeSnapshot(t, cache, "a.exr", time.Now())

	res, err := m.Process(context.Background(), Request{DocPath: t.TempDir(), DocName: "shot.c4d"})
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "libpng warning")
	assert.FileExists(t, res.Output)
}

type fakePublisher struct {
	objects []string
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, _, object string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.objects = append(p.objects, object)
	return "gs://bucket/" + object, nil
}

func TestProcess_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	m, cache := newManager(t, &copyConverter{write: true}, WithPublisher(pub))
	writeSnapshot(t, cache, "a.exr", time.Now())

	res, err := m.Process(context.Background(), Request{DocPath: t.TempDir(), DocName: "shot.c4d", Artist: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana/250307/shot.png"}, pub.objects)
	assert.Equal(t, "gs://bucket/Ana/250307/shot.png", res.URL)
}

func TestProcess_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("403")}
	m, cache := newManager(t, &copyConverter{write: true}, WithPublisher(pub))
	writeSnapshot(t, cache, "a.exr", time.Now())

	res, err := m.Process(context.Background(), Request{DocPath: t.TempDir(), DocName: "shot.c4d"})
	require.NoError(t, err)
	assert.Empty(t, res.URL)
}

func TestCleanup(t *testing.T) {
	m, cache := newManager(t, &copyConverter{})
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.exr", "b.exr", "c.exr", "d.exr"} {
		writeSnapshot(t, cache, name, base.Add(time.Duration(i)*time.Minute))
	}

	removed, err := m.Cleanup(2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(cache, "a.exr"), filepath.Join(cache, "b.exr")}, removed)

	files, err := m.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(cache, "d.exr"), files[0].Path)

	removed, err = m.Cleanup(5)
	require.NoError(t, err)
	assert.Empty(t, removed)
}

func TestNewExecConverter(t *testing.T) {
	tests := []struct {
		name string
		args []string
		ok   bool
	}{
		{"valid", []string{"oiiotool", "{src}", "-o", "{dst}"}, true},
		{"embedded placeholders", []string{"conv", "--in={src}", "--out={dst}"}, true},
		{"empty", nil, false},
		{"missing dst", []string{"conv", "{src}"}, false},
		{"program is placeholder only", []string{"{src}", "{dst}"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExecConverter(tt.args)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidConverter)
			}
		})
	}
}

func TestExecConverter_Convert(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "in.exr")
	dst := filepath.Join(dir, "out.png")
	require.NoError(t, os.WriteFile(src, []byte("pixels"), 0o644))

	c, err := NewExecConverter([]string{"cp", "{src}", "{dst}"})
	require.NoError(t, err)
	require.NoError(t, c.Convert(context.Background(), src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	err = c.Convert(context.Background(), filepath.Join(dir, "missing.exr"), dst)
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	m, cache := newManager(t, &copyConverter{write: true})
	project := t.TempDir()

	results := make(chan WatchResult, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Watch(ctx, func(context.Context) (Request, error) {
			return Request{DocPath: project, DocName: "shot.c4d", Artist: "Ana"}, nil
		}, 1, func(r WatchResult) { results <- r }, fswatch.WithDebounce(50*time.Millisecond))
	}()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register before the snapshot lands.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cache, "rv.exr"), []byte("x"), 0o644))

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Equal(t, filepath.Join(project, "Output", "Ana", "250307", "shot.png"), r.Result.Output)
	case <-time.After(3 * time.Second):
		t.Fatal("snapshot was not processed")
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot files render-view snapshots into the project output tree.
//
// The renderer drops EXR snapshots into a cache directory. The manager
// picks the newest one, converts it to <scene>.png under
// <project>/Output/<artist>/<YYMMDD>/, and remembers what it converted so
// the same snapshot is not processed twice. Image conversion itself is
// delegated to a Converter.
package snapshot

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/AleutianAI/guardian/pkg/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Extension is the snapshot file extension, matched case-insensitively.
	Extension = ".exr"

	// UnknownArtist names the artist folder when no artist is set.
	UnknownArtist = "Unknown"

	// UntitledScene names the output file for unsaved documents.
	UntitledScene = "untitled"

	// OutputFolder is created under the document directory.
	OutputFolder = "Output"

	dateLayout = "060102"
)

// Ledger remembers processed snapshots. *badger.Ledger implements it.
type Ledger interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkIfNew(ctx context.Context, key string) (bool, error)
}

// File is one snapshot on disk.
type File struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
}

// key identifies a snapshot version: the same path rewritten later is a
// new snapshot.
func (f File) key() string {
	return fmt.Sprintf("%s@%d", f.Path, f.ModTime.UnixNano())
}

// Request describes the document a snapshot belongs to.
type Request struct {
	// DocPath is the directory the document is saved in, "" if unsaved.
	DocPath string `json:"doc_path"`

	// DocName is the document file name; its extension is dropped.
	DocName string `json:"doc_name"`

	Artist string `json:"artist"`
}

// Result is the outcome of a successful Process.
type Result struct {
	Source File   `json:"source"`
	Output string `json:"output"`

	// URL is set when the image was published.
	URL string `json:"url,omitempty"`

	// Warning is set when the converter reported failure but produced
	// the output anyway.
	Warning string `json:"warning,omitempty"`
}

// Manager finds, converts and cleans up snapshots.
//
// Thread Safety: Safe for concurrent use; Process calls are serialized.
type Manager struct {
	dir          string
	fallbackRoot string
	converter    Converter
	ledger       Ledger
	publisher    Publisher
	logger       *slog.Logger
	now          func() time.Time

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithFallbackRoot sets the output root for unsaved documents.
func WithFallbackRoot(dir string) Option {
	return func(m *Manager) {
		m.fallbackRoot = dir
	}
}

// WithPublisher uploads every processed image.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) {
		m.publisher = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock overrides time.Now for the date folder.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a manager for the snapshot directory dir.
//
// Inputs:
//   - dir: Where the renderer writes snapshots.
//   - converter: Produces the output image.
//   - ledger: Remembers processed snapshots across runs.
//   - opts: Optional fallback root, publisher, logger, clock.
func New(dir string, converter Converter, ledger Ledger, opts ...Option) *Manager {
	m := &Manager{
		dir:       dir,
		converter: converter,
		ledger:    ledger,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Dir returns the snapshot directory.
func (m *Manager) Dir() string {
	return m.dir
}

// List returns the snapshots in the directory, newest first. A missing
// directory holds no snapshots.
func (m *Manager) List() ([]File, error) {
	entries, err := os.ReadDir(m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory: %w", err)
	}

	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), Extension) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		files = append(files, File{Path: filepath.Join(m.dir, e.Name()), ModTime: info.ModTime()})
	}

	slices.SortFunc(files, func(a, b File) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})
	return files, nil
}

// Latest returns the newest snapshot, or ErrNoSnapshots.
func (m *Manager) Latest() (File, error) {
	files, err := m.List()
	if err != nil {
		return File{}, err
	}
	if len(files) == 0 {
		return File{}, fmt.Errorf("%w in %s", ErrNoSnapshots, m.dir)
	}
	return files[0], nil
}

// OutputDir builds and creates <docPath>/Output/<artist>/<YYMMDD>.
//
// Unsaved documents (docPath == "") use <fallback root>/<artist>/<YYMMDD>.
// An empty artist becomes "Unknown". The artist is sanitized for use as a
// directory name.
//
// Outputs:
//   - string: The created directory.
//   - error: ErrNoOutputRoot, or a filesystem error.
func (m *Manager) OutputDir(docPath, artist string, now time.Time) (string, error) {
	folder := validation.SanitizePathComponent(artist, UnknownArtist)
	date := now.Format(dateLayout)

	var dir string
	switch {
	case docPath != "":
		dir = filepath.Join(docPath, OutputFolder, folder, date)
	case m.fallbackRoot != "":
		dir = filepath.Join(m.fallbackRoot, folder, date)
	default:
		return "", ErrNoOutputRoot
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return dir, nil
}

// sceneName is the document name without its extension, sanitized.
func sceneName(docName string) string {
	base := strings.TrimSuffix(docName, filepath.Ext(docName))
	return validation.SanitizePathComponent(base, UntitledScene)
}

// Process converts the newest snapshot for the document in req.
//
// Description:
//
//	Finds the newest snapshot and skips it with ErrAlreadyProcessed when
//	the ledger has seen this path and modification time. Otherwise the
//	snapshot is converted to <scene>.png in the output directory. When the
//	converter fails but wrote the output during this call, the output is
//	accepted and Result.Warning says so. A processed snapshot is recorded
//	in the ledger and published when a publisher is configured; a publish
//	failure is logged and does not fail the call.
//
// Outputs:
//   - Result: What was written.
//   - error: ErrNoSnapshots, ErrAlreadyProcessed, ErrNoOutputRoot,
//     ErrConversionFailed, or a ledger or filesystem error.
func (m *Manager) Process(ctx context.Context, req Request) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "snapshot.Process",
		trace.WithAttributes(attribute.String("snapshot.dir", m.dir)))
	defer func() {
		outcome := "converted"
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			outcome = "duplicate"
		case err != nil:
			outcome = "failed"
			span.RecordError(err)
			span.SetStatus(codes.Error, "snapshot failed")
		case res.Warning != "":
			outcome = "recovered"
		}
		processedTotal.WithLabelValues(outcome).Inc()
		span.SetAttributes(attribute.String("snapshot.outcome", outcome))
		span.End()
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	logger := m.logger.With(slog.String("component", "snapshot"))

	src, err := m.Latest()
	if err != nil {
		return Result{}, err
	}
	seen, err := m.ledger.Seen(ctx, src.key())
	if err != nil {
		return Result{}, fmt.Errorf("read ledger: %w", err)
	}
	if seen {
		logger.Debug("snapshot already processed", slog.String("source", src.Path))
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyProcessed, filepath.Base(src.Path))
	}

	now := m.now()
	outDir, err := m.OutputDir(req.DocPath, req.Artist, now)
	if err != nil {
		return Result{}, err
	}
	res = Result{Source: src, Output: filepath.Join(outDir, sceneName(req.DocName)+".png")}

	logger.Info("converting snapshot",
		slog.String("source", src.Path),
		slog.String("output", res.Output),
		slog.String("artist", req.Artist))

	started := time.Now()
	if cerr := m.converter.Convert(ctx, src.Path, res.Output); cerr != nil {
		if !writtenSince(res.Output, started) {
			logger.Error("snapshot conversion failed",
				slog.String("source", src.Path),
				slog.String("error", cerr.Error()))
			return Result{}, fmt.Errorf("%w: %w", ErrConversionFailed, cerr)
		}
		res.Warning = fmt.Sprintf("converter reported failure but wrote the output: %v", cerr)
		logger.Warn("output exists but conversion reported failure",
			slog.String("output", res.Output),
			slog.String("error", cerr.Error()))
	}

	if _, err := m.ledger.MarkIfNew(ctx, src.key()); err != nil {
		return Result{}, fmt.Errorf("update ledger: %w", err)
	}

	if m.publisher != nil {
		object := filepath.ToSlash(filepath.Join(
			validation.SanitizePathComponent(req.Artist, UnknownArtist),
			now.Format(dateLayout),
			filepath.Base(res.Output)))
		url, perr := m.publisher.Publish(ctx, res.Output, object)
		if perr != nil {
			logger.Warn("snapshot publish failed",
				slog.String("output", res.Output),
				slog.String("error", perr.Error()))
		} else {
			res.URL = url
		}
	}

	logger.Info("snapshot saved", slog.String("output", res.Output))
	return res, nil
}

// writtenSince reports whether path exists and was modified at or after
// t, allowing for coarse filesystem timestamps.
func writtenSince(path string, t time.Time) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return !info.ModTime().Before(t.Truncate(time.Second))
}

// Cleanup deletes all but the newest keepLast snapshots.
//
// Outputs:
//   - []string: Deleted paths.
//   - error: The first deletion failure; later files are still tried.
func (m *Manager) Cleanup(keepLast int) ([]string, error) {
	if keepLast < 0 {
		keepLast = 0
	}
	files, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(files) <= keepLast {
		return nil, nil
	}

	var removed []string
	var firstErr error
	for _, f := range files[keepLast:] {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", f.Path, err)
			}
			continue
		}
		removed = append(removed, f.Path)
	}
	removedTotal.Add(float64(len(removed)))
	if len(removed) > 0 {
		m.logger.Info("cleaned up snapshots",
			slog.String("component", "snapshot"),
			slog.Int("removed", len(removed)),
			slog.Int("kept", keepLast))
	}
	return removed, firstErr
}

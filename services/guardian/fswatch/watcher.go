// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fswatch delivers debounced file change batches.
//
// Guardian watches two things: the scene fixture, to reload the document
// when it is saved, and the renderer's snapshot directory, to convert new
// snapshots as they land. Both produce bursts of events for one logical
// change, so events are batched until the directory has been quiet for the
// debounce window.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 200 * time.Millisecond

// Op is the type of change.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

// String returns the string representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file system change.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler receives a batch of changes, at most one per path, in first-seen
// order. It is called from a single goroutine.
type Handler func(changes []Change)

// Filter selects the paths a watcher reports.
type Filter func(path string) bool

// MatchExt matches file names with any of the extensions, ignoring case.
// Extensions include the dot: ".exr".
func MatchExt(exts ...string) Filter {
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, e := range exts {
			if strings.EqualFold(ext, e) {
				return true
			}
		}
		return false
	}
}

// MatchFile matches exactly one file.
func MatchFile(file string) Filter {
	want := filepath.Clean(file)
	return func(path string) bool {
		return filepath.Clean(path) == want
	}
}

type options struct {
	debounce time.Duration
	filter   Filter
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*options)

// WithDebounce sets the quiet period. Default: 200ms.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithFilter restricts reported paths. Default: everything except editor
// swap and temp files.
func WithFilter(f Filter) Option {
	return func(o *options) {
		if f != nil {
			o.filter = f
		}
	}
}

// WithLogger sets the logger for watcher errors.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func notTemp(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range []string{"*.swp", "*.tmp", ".*~", "*~"} {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	return true
}

// Watcher watches directories (not recursively) and delivers debounced
// batches.
//
// Thread Safety: Run must be called once. The handler runs on Run's
// goroutine.
type Watcher struct {
	dirs    []string
	handler Handler
	opts    options
	fsw     *fsnotify.Watcher
}

// New creates a watcher for dirs.
//
// Inputs:
//   - dirs: Directories to watch. Must exist.
//   - handler: Called with each batch.
//   - opts: Optional debounce, filter and logger.
//
// Outputs:
//   - *Watcher: Ready to Run.
//   - error: Non-nil if a directory cannot be watched.
func New(dirs []string, handler Handler, opts ...Option) (*Watcher, error) {
	o := options{
		debounce: DefaultDebounce,
		filter:   notTemp,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{dirs: dirs, handler: handler, opts: o, fsw: fsw}, nil
}

// Run delivers batches until ctx is cancelled, then flushes the pending
// batch and closes the watcher. It always returns nil after cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 && w.handler != nil {
			w.handler(dedupe(batch))
		}
		batch = batch[:0]
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			if !w.opts.filter(event.Name) {
				continue
			}
			batch = append(batch, Change{Path: event.Name, Op: convertOp(event.Op), Time: time.Now()})
			if timer == nil {
				timer = time.NewTimer(w.opts.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.opts.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return nil
			}
			w.opts.logger.Warn("file watcher error",
				slog.String("component", "fswatch"),
				slog.Any("dirs", w.dirs),
				slog.String("error", err.Error()))

		case <-timerC:
			timer = nil
			timerC = nil
			flush()
		}
	}
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Create):
		return OpCreate
	case op.Has(fsnotify.Write):
		return OpWrite
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	default:
		return OpWrite
	}
}

// dedupe keeps the most recent change per path at the position the path
// was first seen.
func dedupe(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	result := make([]Change, 0, len(changes))
	for _, c := range changes {
		if idx, ok := seen[c.Path]; ok {
			result[idx] = c
			continue
		}
		seen[c.Path] = len(result)
		result = append(result, c)
	}
	return result
}

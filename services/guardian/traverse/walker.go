// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package traverse walks a host scene graph with hard bounds.
//
// The walk is an iterative depth-first pre-order traversal with an explicit
// stack, so arbitrarily deep graphs never grow the goroutine stack. Node
// count and depth are capped; hitting a cap yields a partial graph and sets
// Stats.Truncated rather than failing. Unreadable nodes are skipped along
// with their subtree.
//
// # Thread Safety
//
// A Walker is not safe for concurrent use and must run on the goroutine
// that owns the scene graph.
package traverse

import (
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// Traversal limits.
const (
	// DefaultMaxNodes is the default node cap for detector walks.
	DefaultMaxNodes = 1000

	// DefaultMaxDepth is the default depth cap. Depth 0 is a walk root.
	DefaultMaxDepth = 256
)

// Entry is one visited node.
type Entry struct {
	Node  scene.Node
	Depth int
}

// Stats describes the last completed or abandoned walk.
type Stats struct {
	// Visited is the number of entries yielded.
	Visited int

	// Skipped is the number of nodes that could not be read.
	Skipped int

	// Truncated is true when the node or depth cap cut the walk short.
	Truncated bool
}

type options struct {
	maxNodes int
	maxDepth int
	logger   *slog.Logger
	ctx      context.Context
}

// Option configures a Walker.
type Option func(*options)

// WithMaxNodes caps the number of yielded nodes. n <= 0 uses the default.
func WithMaxNodes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxNodes = n
		}
	}
}

// WithMaxDepth caps the walk depth. d < 0 uses the default.
func WithMaxDepth(d int) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDepth = d
		}
	}
}

// WithLogger sets the logger used for skipped nodes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithContext sets the context used for tracing and metrics.
func WithContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// Walker performs bounded traversals over a scene.Reader.
type Walker struct {
	reader scene.Reader
	opts   options
	stats  Stats
}

// New creates a Walker.
//
// Inputs:
//   - reader: The scene graph to walk. Must not be nil.
//   - opts: Optional caps, logger and context.
//
// Outputs:
//   - *Walker: The walker. Never nil.
func New(reader scene.Reader, opts ...Option) *Walker {
	o := options{
		maxNodes: DefaultMaxNodes,
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Walker{reader: reader, opts: o}
}

// MaxNodes returns the configured node cap.
func (w *Walker) MaxNodes() int { return w.opts.maxNodes }

// MaxDepth returns the configured depth cap.
func (w *Walker) MaxDepth() int { return w.opts.maxDepth }

// Reader returns the walked scene.
func (w *Walker) Reader() scene.Reader { return w.reader }

// Stats returns the statistics of the most recent walk.
func (w *Walker) Stats() Stats { return w.stats }

// All walks every top-level node and its descendants in document order.
//
// Description:
//
//	Yields entries in depth-first pre-order. Stops after MaxNodes entries
//	and does not descend below MaxDepth; either sets Stats.Truncated.
//	A failure listing the top-level nodes ends the walk with no entries
//	and one skipped count.
//
// Outputs:
//   - iter.Seq[Entry]: Single-use or re-usable sequence; every range over
//     it starts a fresh walk and resets Stats.
func (w *Walker) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		roots, err := w.reader.TopLevel()
		if err != nil {
			w.stats = Stats{Skipped: 1}
			w.opts.logger.Warn("listing top-level nodes failed",
				slog.String("component", "traverse"),
				slog.String("error", err.Error()))
			return
		}
		w.walk(roots, yield)
	}
}

// From walks id and its descendants. id is yielded at depth 0.
func (w *Walker) From(id scene.NodeID) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		w.walk([]scene.NodeID{id}, yield)
	}
}

type frame struct {
	id    scene.NodeID
	depth int
}

func (w *Walker) walk(roots []scene.NodeID, yield func(Entry) bool) {
	start := time.Now()
	w.stats = Stats{}
	defer func() {
		recordWalk(w.opts.ctx, w.stats, time.Since(start))
	}()

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{id: roots[i]})
	}
	seen := make(map[scene.NodeID]struct{}, min(w.opts.maxNodes, 1024))

	for len(stack) > 0 {
		if w.stats.Visited >= w.opts.maxNodes {
			w.stats.Truncated = true
			return
		}

		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, dup := seen[f.id]; dup {
			continue
		}
		seen[f.id] = struct{}{}

		node, err := w.reader.Node(f.id)
		if err != nil {
			w.skip(f.id, err)
			continue
		}

		w.stats.Visited++
		if !yield(Entry{Node: node, Depth: f.depth}) {
			return
		}

		children, err := w.reader.Children(f.id)
		if err != nil {
			w.skip(f.id, err)
			continue
		}
		if len(children) == 0 {
			continue
		}
		if f.depth >= w.opts.maxDepth {
			w.stats.Truncated = true
			continue
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], depth: f.depth + 1})
		}
	}
}

func (w *Walker) skip(id scene.NodeID, err error) {
	w.stats.Skipped++
	w.opts.logger.Debug("skipping unreadable node",
		slog.String("component", "traverse"),
		slog.String("node", id.String()),
		slog.String("error", (&NodeError{ID: id, Err: err}).Error()))
}

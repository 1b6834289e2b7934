// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package detect contains the scene quality detectors.
//
// Each detector inspects a scene.Reader for one class of authoring defect
// and returns a CheckResult listing the offending nodes. Detectors are
// stateless between passes: they walk the graph with a bounded walker, stop
// at the offender cap, and never mutate the scene.
//
// Five detectors are provided:
//
//	| Kind       | Flags                                                       |
//	|------------|-------------------------------------------------------------|
//	| lights     | light nodes with no ancestor named light/lights/lighting    |
//	| visibility | contradictory editor/render visibility                      |
//	| keyframes  | position or rotation animated on more than one axis         |
//	| camera     | cameras with a non-zero film offset                         |
//	| presets    | render settings outside the preset allow-list or duplicated |
//
// # Thread Safety
//
// Detectors hold no per-pass state and may be reused, but every Detect call
// must run on the goroutine that owns the scene graph. The Classifier they
// share is not safe for concurrent use.
package detect

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/traverse"
)

// Kind names a detector.
type Kind string

const (
	KindLights     Kind = "lights"
	KindVisibility Kind = "visibility"
	KindKeyframes  Kind = "keyframes"
	KindCamera     Kind = "camera"
	KindPresets    Kind = "presets"
)

// Kinds returns every detector kind in display order.
func Kinds() []Kind {
	return []Kind{KindLights, KindVisibility, KindKeyframes, KindCamera, KindPresets}
}

// ParseKind parses a detector kind name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// DefaultOffenderCap is the maximum number of offenders one detector reports.
const DefaultOffenderCap = 50

// Offender is one node (or render setting) that violates a check.
type Offender struct {
	// Node is the offending node, or 0 for render-setting offenders.
	Node scene.NodeID `json:"node"`

	// Name is the node name or render-setting name.
	Name string `json:"name"`

	// Reason is a short human-readable description.
	Reason string `json:"reason"`
}

// CheckResult is the outcome of one detector pass.
type CheckResult struct {
	Kind      Kind       `json:"kind"`
	Offenders []Offender `json:"offenders"`

	// Count is len(Offenders).
	Count int `json:"count"`

	// Truncated is true when the offender cap or a traversal cap cut the
	// pass short, so more offenders may exist.
	Truncated bool `json:"truncated"`
}

// OK reports whether the pass found no offenders.
func (r CheckResult) OK() bool {
	return r.Count == 0
}

// Detector inspects a scene for one class of defect.
type Detector interface {
	// Kind identifies the detector.
	Kind() Kind

	// Detect runs one pass. A non-nil error means the pass could not run;
	// per-node read failures are skipped and do not produce an error.
	Detect(ctx context.Context, r scene.Reader) (CheckResult, error)
}

// =============================================================================
// Options
// =============================================================================

type options struct {
	offenderCap int
	maxNodes    int
	maxDepth    int
	logger      *slog.Logger

	lightGroups []string
	presets     []string
	epsilon     float64
}

func defaultOptions() options {
	return options{
		offenderCap: DefaultOffenderCap,
		maxNodes:    traverse.DefaultMaxNodes,
		maxDepth:    traverse.DefaultMaxDepth,
		logger:      slog.Default(),
		lightGroups: DefaultLightGroupNames(),
		presets:     DefaultPresets(),
		epsilon:     DefaultFilmOffsetEpsilon,
	}
}

// Option configures a detector. Options that do not apply to a detector
// are ignored by it.
type Option func(*options)

// WithOffenderCap sets the maximum number of reported offenders.
// n <= 0 uses DefaultOffenderCap.
func WithOffenderCap(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.offenderCap = n
		}
	}
}

// WithMaxNodes sets the traversal node cap.
func WithMaxNodes(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxNodes = n
		}
	}
}

// WithMaxDepth sets the traversal depth cap.
func WithMaxDepth(d int) Option {
	return func(o *options) {
		if d >= 0 {
			o.maxDepth = d
		}
	}
}

// WithLogger sets the logger for skipped nodes.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithLightGroupNames replaces the ancestor names accepted as a lights
// group (lights detector). Names are compared case-insensitively.
func WithLightGroupNames(names ...string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.lightGroups = names
		}
	}
}

// WithPresets replaces the render-setting allow-list (presets detector).
// Names are normalized like the settings they are compared with.
func WithPresets(names ...string) Option {
	return func(o *options) {
		if len(names) > 0 {
			o.presets = names
		}
	}
}

// WithFilmOffsetEpsilon sets the film offset tolerance (camera detector).
func WithFilmOffsetEpsilon(eps float64) Option {
	return func(o *options) {
		if eps > 0 {
			o.epsilon = eps
		}
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) walker(ctx context.Context, r scene.Reader) *traverse.Walker {
	return traverse.New(r,
		traverse.WithMaxNodes(o.maxNodes),
		traverse.WithMaxDepth(o.maxDepth),
		traverse.WithLogger(o.logger),
		traverse.WithContext(ctx))
}

// =============================================================================
// Offender collection
// =============================================================================

// collector accumulates offenders up to the cap.
type collector struct {
	res CheckResult
	cap int
}

func newCollector(kind Kind, capacity int) *collector {
	return &collector{
		res: CheckResult{Kind: kind, Offenders: make([]Offender, 0, min(capacity, 16))},
		cap: capacity,
	}
}

// add records an offender. It returns false once the cap is reached; the
// caller stops scanning.
func (c *collector) add(o Offender) bool {
	if len(c.res.Offenders) >= c.cap {
		c.res.Truncated = true
		return false
	}
	c.res.Offenders = append(c.res.Offenders, o)
	c.res.Count = len(c.res.Offenders)
	return true
}

func (c *collector) result(w *traverse.Walker) CheckResult {
	if w != nil && w.Stats().Truncated {
		c.res.Truncated = true
	}
	return c.res
}

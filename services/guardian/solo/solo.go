// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package solo isolates a selection of containers and restores the scene.
//
// The controller is a two-state machine whose state is read back from the
// scene on every call rather than remembered:
//
//	Normal ──Enter(S)──▶ Solo(S) ──Restore──▶ Normal
//	                      │  ▲
//	                      └──┘ Enter(S′)
//
// A scene is in solo mode when any container has its view or render switch
// off, or when any node without a container is disabled. Each operation runs
// in one undo-recordable transaction.
package solo

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/traverse"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Transaction labels.
const (
	EnterLabel   = "Solo containers"
	RestoreLabel = "Restore containers"
)

// DefaultMaxNodes bounds the walk that toggles unassigned nodes.
const DefaultMaxNodes = 100000

// Mode is the isolation state of a scene.
type Mode int

const (
	ModeNormal Mode = iota
	ModeSolo
)

// String returns "normal" or "solo".
func (m Mode) String() string {
	if m == ModeSolo {
		return "solo"
	}
	return "normal"
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// State is the isolation state read from a scene.
type State struct {
	Mode Mode `json:"mode"`

	// Selected lists, in solo mode, the containers whose isolation switches
	// are all on. Empty in normal mode.
	Selected []string `json:"selected"`
}

// Result summarizes one transition.
type Result struct {
	State

	// ContainersChanged counts containers whose flags were written.
	ContainersChanged int `json:"containers_changed"`

	// NodesChanged counts unassigned nodes whose enable switch was written.
	NodesChanged int `json:"nodes_changed"`

	// Failed counts writes that failed. Failures are logged and skipped.
	Failed int `json:"failed"`

	TransactionID string `json:"transaction_id,omitempty"`
}

// Controller performs solo transitions.
//
// Thread Safety: Stateless apart from configuration; calls must run on the
// scene owner goroutine.
type Controller struct {
	maxNodes int
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxNodes bounds the unassigned-node walk.
func WithMaxNodes(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxNodes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Controller.
func New(opts ...Option) *Controller {
	c := &Controller{
		maxNodes: DefaultMaxNodes,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DetectMode reads the isolation state of r.
func (c *Controller) DetectMode(r scene.Reader) (State, error) {
	containers, err := r.Containers()
	if err != nil {
		return State{}, fmt.Errorf("listing containers: %w", err)
	}

	solo := slices.ContainsFunc(containers, func(ct scene.Container) bool {
		return ct.Flags.Hidden()
	})
	if !solo {
		// Selecting every container hides none of them, so the disabled
		// unassigned nodes are the only trace of the isolation.
		solo = c.hasDisabledUnassigned(r)
	}
	if !solo {
		return State{Mode: ModeNormal}, nil
	}

	st := State{Mode: ModeSolo}
	for _, ct := range containers {
		if ct.Flags.IsolationOn() {
			st.Selected = append(st.Selected, ct.Name)
		}
	}
	return st, nil
}

func (c *Controller) hasDisabledUnassigned(r scene.Reader) bool {
	w := traverse.New(r,
		traverse.WithMaxNodes(c.maxNodes),
		traverse.WithLogger(c.logger))
	for e := range w.All() {
		if e.Node.Enabled {
			continue
		}
		if _, ok, err := r.ContainerOf(e.Node.ID); err == nil && !ok {
			return true
		}
	}
	return false
}

// Enter isolates the selected containers.
//
// Description:
//
//	Containers in selected get their view, render, generator, deformer,
//	expression and animation switches turned on; every other container
//	gets them turned off. Nodes without a container are disabled.
//	Containers and nodes already in the target state are not written, so
//	repeating Enter with the same selection changes nothing.
//
// Inputs:
//   - ctx: Context for tracing.
//   - doc: The document.
//   - selected: Container names to keep visible.
//
// Outputs:
//   - Result: The new state and change counts.
//   - error: ErrEmptySelection, ErrUnknownContainer or a host transaction
//     error. Nothing is changed when an error is returned before the
//     transaction opens.
func (c *Controller) Enter(ctx context.Context, doc scene.Document, selected []string) (Result, error) {
	ctx, span := tracer.Start(ctx, "solo.Enter",
		trace.WithAttributes(attribute.StringSlice("solo.selected", selected)))
	defer span.End()

	res, err := c.enter(ctx, doc, selected)
	finish(span, "enter", err)
	return res, err
}

func (c *Controller) enter(ctx context.Context, doc scene.Document, selected []string) (Result, error) {
	if len(selected) == 0 {
		return Result{}, ErrEmptySelection
	}

	containers, err := doc.Containers()
	if err != nil {
		return Result{}, fmt.Errorf("listing containers: %w", err)
	}

	want := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		want[name] = struct{}{}
	}
	var unknown []string
	for name := range want {
		if !slices.ContainsFunc(containers, func(ct scene.Container) bool { return ct.Name == name }) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownContainer, strings.Join(unknown, ", "))
	}

	return c.apply(ctx, doc, EnterLabel, containers, func(name string) bool {
		_, ok := want[name]
		return ok
	}, false)
}

// Restore turns every container's isolation switches back on and
// re-enables every node without a container. A second Restore changes
// nothing.
func (c *Controller) Restore(ctx context.Context, doc scene.Document) (Result, error) {
	ctx, span := tracer.Start(ctx, "solo.Restore")
	defer span.End()

	res, err := c.restore(ctx, doc)
	finish(span, "restore", err)
	return res, err
}

func (c *Controller) restore(ctx context.Context, doc scene.Document) (Result, error) {
	containers, err := doc.Containers()
	if err != nil {
		return Result{}, fmt.Errorf("listing containers: %w", err)
	}
	return c.apply(ctx, doc, RestoreLabel, containers, func(string) bool { return true }, true)
}

// Toggle implements the isolate button.
//
// Description:
//
//	In normal mode it enters solo with selected. In solo mode it restores
//	when selected equals the currently isolated set (order-insensitive),
//	and otherwise switches the isolation to selected.
func (c *Controller) Toggle(ctx context.Context, doc scene.Document, selected []string) (Result, error) {
	st, err := c.DetectMode(doc)
	if err != nil {
		return Result{}, err
	}
	if st.Mode == ModeSolo && sameSet(st.Selected, selected) {
		return c.Restore(ctx, doc)
	}
	return c.Enter(ctx, doc, selected)
}

// apply writes container flags and unassigned-node enable switches in one
// transaction. keep reports whether a container stays visible; enable is
// the target enable state of unassigned nodes.
func (c *Controller) apply(ctx context.Context, doc scene.Document, label string,
	containers []scene.Container, keep func(string) bool, enable bool) (Result, error) {

	txn, err := doc.Begin(label)
	if err != nil {
		return Result{}, fmt.Errorf("opening transaction: %w", err)
	}
	res := Result{TransactionID: txn.ID()}
	logger := c.logger.With(
		slog.String("component", "solo"),
		slog.String("txn", txn.ID()))

	for _, ct := range containers {
		target := ct.Flags.WithIsolation(keep(ct.Name))
		if target == ct.Flags {
			continue
		}
		if err := txn.SetContainerFlags(ct.Name, target); err != nil {
			res.Failed++
			logger.Warn("setting container flags failed",
				slog.String("container", ct.Name),
				slog.String("error", err.Error()))
			continue
		}
		res.ContainersChanged++
	}

	w := traverse.New(doc,
		traverse.WithMaxNodes(c.maxNodes),
		traverse.WithLogger(c.logger),
		traverse.WithContext(ctx))
	for e := range w.All() {
		if e.Node.Enabled == enable {
			continue
		}
		if _, ok, err := doc.ContainerOf(e.Node.ID); err != nil || ok {
			continue
		}
		if err := txn.SetNodeEnabled(e.Node.ID, enable); err != nil {
			res.Failed++
			logger.Warn("setting node enable failed",
				slog.String("node", e.Node.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		res.NodesChanged++
	}

	if err := txn.End(); err != nil {
		return res, fmt.Errorf("closing transaction: %w", err)
	}

	st, err := c.DetectMode(doc)
	if err != nil {
		return res, err
	}
	res.State = st

	logger.Info(strings.ToLower(label),
		slog.String("mode", st.Mode.String()),
		slog.Int("containers_changed", res.ContainersChanged),
		slog.Int("nodes_changed", res.NodesChanged),
		slog.Int("failed", res.Failed))
	return res, nil
}

func finish(span trace.Span, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
	}
	transitionTotal.WithLabelValues(op, outcome).Inc()
}

func sameSet(a, b []string) bool {
	as := slices.Clone(a)
	bs := slices.Clone(b)
	slices.Sort(as)
	slices.Sort(bs)
	return slices.Equal(slices.Compact(as), slices.Compact(bs))
}

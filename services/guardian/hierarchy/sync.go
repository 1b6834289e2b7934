// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hierarchy mirrors the top-level grouping of a scene into
// containers.
//
// Every top-level group node becomes (or reuses) the container of the same
// name, and the group and all of its descendants are assigned to it. The
// operation is idempotent: a second run on an unchanged scene creates
// nothing and leaves every membership as it was.
//
// Top-level nodes that are neither groups nor of an exempt category
// (cameras and lights by default) block the operation before anything is
// changed.
package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/traverse"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxNodes bounds the number of nodes one synchronization assigns.
const DefaultMaxNodes = 100000

// TransactionLabel is the undo label of a synchronization.
const TransactionLabel = "Synchronize hierarchy"

// Result summarizes one synchronization.
type Result struct {
	// Created lists containers created by this run.
	Created []string `json:"created"`

	// Updated lists existing containers that were reused.
	Updated []string `json:"updated"`

	// SyncedNodes counts nodes whose membership now matches their group,
	// including nodes that were already correct.
	SyncedNodes int `json:"synced_nodes"`

	// Failed counts nodes (or containers) that could not be updated.
	Failed int `json:"failed"`

	// Truncated is true when the node cap stopped the pass early.
	Truncated bool `json:"truncated"`

	// TransactionID identifies the undo step in host logs.
	TransactionID string `json:"transaction_id,omitempty"`
}

// Group is one planned container.
type Group struct {
	Root   scene.NodeID
	Name   string
	Exists bool
	Color  scene.RGB
}

// Synchronizer performs hierarchy-to-container synchronization.
//
// Thread Safety: Not safe for concurrent use; it shares the classifier with
// the detectors and runs on the scene owner goroutine.
type Synchronizer struct {
	classifier *detect.Classifier
	exempt     []detect.Category
	maxNodes   int
	maxDepth   int
	logger     *slog.Logger
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithExempt replaces the categories allowed at top level outside a group.
// Default: light, camera.
func WithExempt(categories ...detect.Category) Option {
	return func(s *Synchronizer) {
		s.exempt = categories
	}
}

// WithMaxNodes caps the number of nodes assigned in one run.
func WithMaxNodes(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.maxNodes = n
		}
	}
}

// WithMaxDepth caps the group depth walked.
func WithMaxDepth(d int) Option {
	return func(s *Synchronizer) {
		if d >= 0 {
			s.maxDepth = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Synchronizer) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Synchronizer.
//
// Inputs:
//   - classifier: Type classifier used to recognize groups and exempt
//     types. Must not be nil.
//   - opts: Optional configuration.
func New(classifier *detect.Classifier, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		classifier: classifier,
		exempt:     []detect.Category{detect.CategoryLight, detect.CategoryCamera},
		maxNodes:   DefaultMaxNodes,
		maxDepth:   traverse.DefaultMaxDepth,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan partitions the top-level nodes without mutating anything.
//
// Outputs:
//   - []Group: One entry per top-level group, in document order.
//   - error: *OrphanError (errors.Is ErrOrphans) when orphans exist, or a
//     host read error.
func (s *Synchronizer) Plan(r scene.Reader) ([]Group, error) {
	top, err := r.TopLevel()
	if err != nil {
		return nil, fmt.Errorf("listing top-level nodes: %w", err)
	}
	containers, err := r.Containers()
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}
	existing := make(map[string]struct{}, len(containers))
	for _, c := range containers {
		existing[c.Name] = struct{}{}
	}

	var groups []Group
	orphans := &OrphanError{}
	for _, id := range top {
		n, err := r.Node(id)
		if err != nil {
			return nil, fmt.Errorf("reading top-level node %s: %w", id, err)
		}

		cat := s.classifier.Classify(r, n.Type)
		switch {
		case cat == detect.CategoryGroup:
			_, ok := existing[n.Name]
			groups = append(groups, Group{
				Root:   n.ID,
				Name:   n.Name,
				Exists: ok,
				Color:  ColorFor(n.Name),
			})
		case slices.Contains(s.exempt, cat):
		default:
			orphans.Total++
			if len(orphans.Names) < MaxOrphanNames {
				orphans.Names = append(orphans.Names, n.Name)
			}
		}
	}

	if orphans.Total > 0 {
		return nil, orphans
	}
	return groups, nil
}

// Synchronize mirrors the top-level groups of doc into containers.
//
// Description:
//
//	Plans first (read-only); orphans abort with *OrphanError before any
//	mutation. Then, inside one transaction, missing containers are
//	created with ColorFor(name) and default flags, and every group root
//	and descendant is assigned to its group's container. Nodes already in
//	the right container are not touched. Per-node assignment failures are
//	logged, counted in Result.Failed and do not stop the pass.
//
// Inputs:
//   - ctx: Context for tracing.
//   - doc: The document to synchronize.
//
// Outputs:
//   - Result: What changed.
//   - error: *OrphanError, or a host transaction error.
func (s *Synchronizer) Synchronize(ctx context.Context, doc scene.Document) (res Result, err error) {
	ctx, span := tracer.Start(ctx, "hierarchy.Synchronize",
		trace.WithAttributes(attribute.String("scene.document", string(doc.ID()))))
	start := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "synchronize failed")
		} else {
			span.SetAttributes(
				attribute.Int("hierarchy.created", len(res.Created)),
				attribute.Int("hierarchy.synced", res.SyncedNodes),
				attribute.Int("hierarchy.failed", res.Failed),
			)
		}
		span.End()
		recordSync(ctx, res, err, time.Since(start))
	}()

	groups, err := s.Plan(doc)
	if err != nil {
		return Result{}, err
	}

	txn, err := doc.Begin(TransactionLabel)
	if err != nil {
		return Result{}, fmt.Errorf("opening transaction: %w", err)
	}
	res.TransactionID = txn.ID()
	logger := s.logger.With(
		slog.String("component", "hierarchy"),
		slog.String("txn", txn.ID()))

	for _, g := range groups {
		if res.SyncedNodes >= s.maxNodes {
			res.Truncated = true
			break
		}

		if g.Exists {
			if !slices.Contains(res.Updated, g.Name) {
				res.Updated = append(res.Updated, g.Name)
			}
		} else if !slices.Contains(res.Created, g.Name) {
			cerr := txn.CreateContainer(scene.Container{
				Name:  g.Name,
				Color: g.Color,
				Flags: scene.DefaultContainerFlags(),
			})
			if cerr != nil && !errors.Is(cerr, scene.ErrContainerExists) {
				logger.Warn("creating container failed",
					slog.String("container", g.Name),
					slog.String("error", cerr.Error()))
				res.Failed++
				continue
			}
			res.Created = append(res.Created, g.Name)
		}

		s.assignGroup(ctx, doc, txn, g, &res, logger)
	}

	if err := txn.End(); err != nil {
		return res, fmt.Errorf("closing transaction: %w", err)
	}

	logger.Info("hierarchy synchronized",
		slog.Int("created", len(res.Created)),
		slog.Int("updated", len(res.Updated)),
		slog.Int("synced_nodes", res.SyncedNodes),
		slog.Int("failed", res.Failed))
	return res, nil
}

func (s *Synchronizer) assignGroup(ctx context.Context, r scene.Reader, txn scene.Txn, g Group, res *Result, logger *slog.Logger) {
	w := traverse.New(r,
		traverse.WithMaxNodes(s.maxNodes-res.SyncedNodes),
		traverse.WithMaxDepth(s.maxDepth),
		traverse.WithLogger(s.logger),
		traverse.WithContext(ctx))

	for e := range w.From(g.Root) {
		current, ok, err := r.ContainerOf(e.Node.ID)
		if err == nil && ok && current == g.Name {
			res.SyncedNodes++
			continue
		}

		if err := txn.AssignContainer(e.Node.ID, g.Name); err != nil {
			res.Failed++
			logger.Warn("assigning node failed",
				slog.String("node", e.Node.ID.String()),
				slog.String("name", e.Node.Name),
				slog.String("container", g.Name),
				slog.String("error", fmt.Errorf("%w: %w", ErrAssignFailed, err).Error()))
			continue
		}
		res.SyncedNodes++
	}

	st := w.Stats()
	res.Failed += st.Skipped
	if st.Truncated {
		res.Truncated = true
	}
}

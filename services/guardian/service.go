// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package guardian provides the scene watchdog service.
//
// The service exposes:
//   - Validation of the open scene with five detectors and a per-document
//     result cache
//   - Hierarchy-to-container synchronization
//   - Solo/restore of containers
//   - The active shot and the artist name
//   - Snapshot filing
//
// Service holds the engine and must only be called from the goroutine that
// owns the scene. Session wraps it with that goroutine (a poll.Loop), the
// open document and the presentation sinks, and is what the HTTP handlers
// and the CLI use.
package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/cache"
	"github.com/AleutianAI/guardian/services/guardian/config"
	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/solo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ServiceConfig configures the guardian service.
type ServiceConfig struct {
	// Kinds lists the detectors enabled at start.
	// Default: all five.
	Kinds []detect.Kind

	// DetectorOptions are passed to every detector.
	DetectorOptions []detect.Option

	// CacheTTL is how long a detector result is reused.
	// Default: 500ms
	CacheTTL time.Duration

	// Exempt lists the categories allowed at top level outside a group.
	// Nil keeps the synchronizer default (light, camera).
	Exempt []detect.Category

	// HierarchyMaxNodes caps one synchronization.
	// Default: 100000
	HierarchyMaxNodes int

	// SoloMaxNodes caps the walk over nodes without a container.
	// Default: 100000
	SoloMaxNodes int

	// Logger receives service logs. Default: slog.Default().
	Logger *slog.Logger

	// Clock overrides time.Now for the cache and report timestamps.
	Clock func() time.Time
}

// DefaultServiceConfig returns the defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Kinds:             detect.Kinds(),
		CacheTTL:          cache.DefaultTTL,
		HierarchyMaxNodes: hierarchy.DefaultMaxNodes,
		SoloMaxNodes:      solo.DefaultMaxNodes,
	}
}

// ServiceConfigFrom converts a loaded guardian.yaml.
func ServiceConfigFrom(cfg config.Config) ServiceConfig {
	sc := DefaultServiceConfig()
	sc.Kinds = cfg.Checks.Kinds()
	sc.DetectorOptions = cfg.Checks.DetectorOptions()
	sc.CacheTTL = cfg.Checks.CacheTTL
	sc.Exempt = cfg.Hierarchy.ExemptCategories()
	sc.HierarchyMaxNodes = cfg.Hierarchy.MaxNodes
	sc.SoloMaxNodes = cfg.Solo.MaxNodes
	return sc
}

// Report is the outcome of one validation pass.
type Report struct {
	Document  scene.DocumentID `json:"document"`
	CheckedAt time.Time        `json:"checked_at"`

	// Results holds one entry per enabled detector that ran (or was served
	// from the cache).
	Results map[detect.Kind]detect.CheckResult `json:"results"`

	// Faults holds detectors that could not complete. A faulted detector
	// has no entry in Results.
	Faults map[detect.Kind]error `json:"-"`
}

// OK reports whether every enabled detector ran and found nothing.
func (r Report) OK() bool {
	if len(r.Faults) > 0 {
		return false
	}
	for _, res := range r.Results {
		if !res.OK() {
			return false
		}
	}
	return true
}

// Offenders returns the total offender count across detectors.
func (r Report) Offenders() int {
	n := 0
	for _, res := range r.Results {
		n += res.Count
	}
	return n
}

// Service runs validation and the scene-restructuring operations.
//
// Thread Safety:
//
//	Not safe for concurrent use. Every method touches the scene graph or
//	the result cache and must run on the goroutine that owns the scene.
type Service struct {
	detectors map[detect.Kind]detect.Detector
	enabled   map[detect.Kind]bool
	results   *cache.Cache[detect.CheckResult]
	sync      *hierarchy.Synchronizer
	solo      *solo.Controller
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a guardian service.
//
// Description:
//
//	Builds all five detectors around one shared type classifier and
//	enables those in cfg.Kinds. The synchronizer shares the classifier
//	too, so a type is classified once per process.
//
// Inputs:
//
//	cfg - Service configuration. Zero fields take defaults.
//
// Outputs:
//
//	*Service - The service.
//	error - Non-nil if cfg names an unknown detector kind.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Kinds == nil {
		cfg.Kinds = detect.Kinds()
	}

	classifier := detect.NewClassifier()
	opts := append(slices.Clone(cfg.DetectorOptions), detect.WithLogger(cfg.Logger))
	all, err := detect.Build(classifier, detect.Kinds(), opts...)
	if err != nil {
		return nil, err
	}

	s := &Service{
		detectors: make(map[detect.Kind]detect.Detector, len(all)),
		enabled:   make(map[detect.Kind]bool, len(all)),
		results: cache.New[detect.CheckResult](
			cache.WithTTL(cfg.CacheTTL),
			cache.WithClock(cfg.Clock),
			cache.WithName("detect")),
		solo:   solo.New(solo.WithMaxNodes(cfg.SoloMaxNodes), solo.WithLogger(cfg.Logger)),
		logger: cfg.Logger.With(slog.String("component", "guardian")),
		now:    cfg.Clock,
	}
	for _, d := range all {
		s.detectors[d.Kind()] = d
	}
	for _, k := range cfg.Kinds {
		if _, ok := s.detectors[k]; !ok {
			return nil, fmt.Errorf("%w: %q", detect.ErrUnknownKind, k)
		}
		s.enabled[k] = true
	}

	hopts := []hierarchy.Option{
		hierarchy.WithMaxNodes(cfg.HierarchyMaxNodes),
		hierarchy.WithLogger(cfg.Logger),
	}
	if cfg.Exempt != nil {
		hopts = append(hopts, hierarchy.WithExempt(cfg.Exempt...))
	}
	s.sync = hierarchy.New(classifier, hopts...)
	return s, nil
}

// =============================================================================
// Validation
// =============================================================================

// Validate runs every enabled detector against doc.
//
// Description:
//
//	A result cached for doc within the TTL is reused; otherwise the
//	detector runs and its result is cached. Switching to a different
//	document clears the cache first. A detector fault is recorded in
//	Report.Faults, is not cached, and does not affect the other detectors.
//
// Inputs:
//
//	ctx - Context for tracing.
//	doc - The document to inspect.
//
// Outputs:
//
//	Report - Results and faults keyed by detector kind.
func (s *Service) Validate(ctx context.Context, doc scene.Document) Report {
	ctx, span := tracer.Start(ctx, "guardian.Validate",
		trace.WithAttributes(attribute.String("document", string(doc.ID()))))
	defer span.End()

	rep := Report{
		Document:  doc.ID(),
		CheckedAt: s.now(),
		Results:   make(map[detect.Kind]detect.CheckResult, len(s.enabled)),
		Faults:    make(map[detect.Kind]error),
	}

	cached := 0
	for _, kind := range detect.Kinds() {
		if !s.enabled[kind] {
			continue
		}
		if res, ok := s.results.Get(doc.ID(), string(kind)); ok {
			rep.Results[kind] = res
			cached++
			validateTotal.WithLabelValues(string(kind), "cache").Inc()
			continue
		}

		res, err := detect.Run(ctx, s.detectors[kind], doc)
		if err != nil {
			rep.Faults[kind] = err
			validateTotal.WithLabelValues(string(kind), "fault").Inc()
			s.logger.Warn("detector fault",
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()))
			continue
		}
		s.results.Set(doc.ID(), string(kind), res)
		rep.Results[kind] = res
		validateTotal.WithLabelValues(string(kind), "run").Inc()
	}

	span.SetAttributes(
		attribute.Int("guardian.offenders", rep.Offenders()),
		attribute.Int("guardian.faults", len(rep.Faults)),
		attribute.Int("guardian.cached", cached),
	)
	return rep
}

// SetEnabled turns one detector on or off. Disabling drops its cached
// result.
func (s *Service) SetEnabled(kind detect.Kind, on bool) error {
	if _, ok := s.detectors[kind]; !ok {
		return fmt.Errorf("%w: %q", detect.ErrUnknownKind, kind)
	}
	s.enabled[kind] = on
	if !on {
		s.results.Delete(string(kind))
	}
	return nil
}

// Enabled returns the enabled detector kinds in display order.
func (s *Service) Enabled() []detect.Kind {
	out := make([]detect.Kind, 0, len(s.enabled))
	for _, k := range detect.Kinds() {
		if s.enabled[k] {
			out = append(out, k)
		}
	}
	return out
}

// CacheStats returns the result cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.results.Stats()
}

// Invalidate drops every cached result.
func (s *Service) Invalidate() {
	s.results.Purge()
}

// =============================================================================
// Scene operations
// =============================================================================

// SynchronizeHierarchy assigns every top-level group's subtree to a
// container named after the group. Cached results are dropped afterwards
// since the graph changed.
func (s *Service) SynchronizeHierarchy(ctx context.Context, doc scene.Document) (hierarchy.Result, error) {
	res, err := s.sync.Synchronize(ctx, doc)
	s.results.Purge()
	return res, err
}

// Solo isolates the selected containers.
func (s *Service) Solo(ctx context.Context, doc scene.Document, selected []string) (solo.Result, error) {
	res, err := s.solo.Enter(ctx, doc, selected)
	if err == nil {
		s.results.Purge()
	}
	return res, err
}

// Restore returns the scene to normal mode.
func (s *Service) Restore(ctx context.Context, doc scene.Document) (solo.Result, error) {
	res, err := s.solo.Restore(ctx, doc)
	if err == nil {
		s.results.Purge()
	}
	return res, err
}

// Toggle restores a soloed scene, or solos selected in a normal one.
func (s *Service) Toggle(ctx context.Context, doc scene.Document, selected []string) (solo.Result, error) {
	res, err := s.solo.Toggle(ctx, doc, selected)
	if err == nil {
		s.results.Purge()
	}
	return res, err
}

// Mode reads the isolation state from the container flags.
func (s *Service) Mode(doc scene.Document) (solo.State, error) {
	return s.solo.DetectMode(doc)
}

// ActiveShot returns the active shot name, "" when none is set.
func (s *Service) ActiveShot(doc scene.Document) (string, error) {
	return doc.ActiveShot()
}

// SetActiveShot activates a shot defined by the document.
func (s *Service) SetActiveShot(doc scene.Document, name string) error {
	if err := doc.SetActiveShot(name); err != nil {
		return err
	}
	s.logger.Info("active shot changed", slog.String("shot", name))
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardian

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/poll"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/settings"
	"github.com/AleutianAI/guardian/services/guardian/snapshot"
	"github.com/AleutianAI/guardian/services/guardian/solo"
)

// Session binds a Service to the goroutine that owns the open document.
//
// Every method that touches the scene submits its work to the loop and
// waits, except Pass, which the poller already calls on the loop. Reports
// from Pass and Check are published to the latest-report sink, the event
// broadcast and any extra sinks.
//
// Thread Safety: Safe for concurrent use.
type Session struct {
	svc  *Service
	loop *poll.Loop

	// doc is only read or written on the loop.
	doc scene.Document

	latest    *poll.Latest[Report]
	events    *poll.Broadcast[Report]
	publish   poll.Fanout[Report]
	settings  *settings.Store
	snapshots *snapshot.Manager
	commit    func(doc scene.Document) error
	logger    *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSink adds a presentation sink that receives every published report.
func WithSink(sink poll.Sink[Report]) SessionOption {
	return func(s *Session) {
		if sink != nil {
			s.publish = append(s.publish, sink)
		}
	}
}

// WithSettings enables the artist name accessors.
func WithSettings(store *settings.Store) SessionOption {
	return func(s *Session) {
		s.settings = store
	}
}

// WithSnapshots enables snapshot filing.
func WithSnapshots(m *snapshot.Manager) SessionOption {
	return func(s *Session) {
		s.snapshots = m
	}
}

// WithCommit registers fn to run on the loop after every successful
// mutation (synchronize, solo, restore, toggle, shot change). The serve
// command uses it to write the scene back to disk.
func WithCommit(fn func(doc scene.Document) error) SessionOption {
	return func(s *Session) {
		s.commit = fn
	}
}

// WithSessionLogger sets the logger.
func WithSessionLogger(l *slog.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates a session. doc may be nil until Open is called. The
// loop must be running (or about to run) for any method except Latest,
// Subscribe and the artist accessors to return.
func NewSession(svc *Service, loop *poll.Loop, doc scene.Document, opts ...SessionOption) *Session {
	s := &Session{
		svc:    svc,
		loop:   loop,
		doc:    doc,
		latest: poll.NewLatest[Report](),
		events: poll.NewBroadcast[Report](),
		logger: slog.Default(),
	}
	s.publish = poll.Fanout[Report]{s.latest, s.events}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Loop returns the loop that owns the document.
func (s *Session) Loop() *poll.Loop {
	return s.loop
}

// mutate runs fn like do and commits the document when fn succeeds. A
// synchronization that aborted on orphans has changed nothing and is not
// committed.
func (s *Session) mutate(ctx context.Context, fn func(doc scene.Document) error) error {
	return s.do(ctx, func(doc scene.Document) error {
		if err := fn(doc); err != nil {
			return err
		}
		if s.commit == nil {
			return nil
		}
		if err := s.commit(doc); err != nil {
			return fmt.Errorf("commit document: %w", err)
		}
		return nil
	})
}

// do runs fn on the loop with the open document.
func (s *Session) do(ctx context.Context, fn func(doc scene.Document) error) error {
	return s.loop.Do(ctx, func() error {
		if s.doc == nil {
			return ErrNoDocument
		}
		return fn(s.doc)
	})
}

// Open replaces the open document and drops every cached result. Reopening
// the same document (a reload from disk) keeps its identity, so the cache
// is purged here rather than on the next validation.
func (s *Session) Open(ctx context.Context, doc scene.Document) error {
	return s.loop.Do(ctx, func() error {
		s.doc = doc
		s.svc.Invalidate()
		if doc != nil {
			s.logger.Info("document opened",
				slog.String("component", "session"),
				slog.String("document", string(doc.ID())),
				slog.String("name", doc.Name()))
		}
		return nil
	})
}

// HasDocument reports whether a document is open.
func (s *Session) HasDocument(ctx context.Context) (bool, error) {
	var open bool
	err := s.loop.Do(ctx, func() error {
		open = s.doc != nil
		return nil
	})
	return open, err
}

// =============================================================================
// Validation
// =============================================================================

// Pass runs one validation pass and publishes the report. It is a
// poll.PassFunc and must run on the loop. Without an open document it does
// nothing.
func (s *Session) Pass(ctx context.Context, _ time.Time) {
	if s.doc == nil {
		return
	}
	s.publish.Publish(s.svc.Validate(ctx, s.doc))
}

// Check runs a validation pass now and publishes the report.
func (s *Session) Check(ctx context.Context) (Report, error) {
	var rep Report
	err := s.do(ctx, func(doc scene.Document) error {
		rep = s.svc.Validate(ctx, doc)
		return nil
	})
	if err != nil {
		return Report{}, err
	}
	s.publish.Publish(rep)
	return rep, nil
}

// Latest returns the most recently published report.
func (s *Session) Latest() (Report, error) {
	rep, _, ok := s.latest.Get()
	if !ok {
		return Report{}, ErrNoReport
	}
	return rep, nil
}

// Subscribe streams published reports. Call the returned function to
// unsubscribe.
func (s *Session) Subscribe() (<-chan Report, func()) {
	ch, cancel := s.events.Subscribe()
	eventSubscribers.Inc()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			eventSubscribers.Dec()
			cancel()
		})
	}
}

// SetEnabled turns one detector on or off.
func (s *Session) SetEnabled(ctx context.Context, kind detect.Kind, on bool) error {
	return s.loop.Do(ctx, func() error {
		return s.svc.SetEnabled(kind, on)
	})
}

// Enabled returns the enabled detector kinds.
func (s *Session) Enabled(ctx context.Context) ([]detect.Kind, error) {
	var kinds []detect.Kind
	err := s.loop.Do(ctx, func() error {
		kinds = s.svc.Enabled()
		return nil
	})
	return kinds, err
}

// =============================================================================
// Scene operations
// =============================================================================

// Synchronize runs hierarchy-to-container synchronization.
func (s *Session) Synchronize(ctx context.Context) (hierarchy.Result, error) {
	var res hierarchy.Result
	err := s.mutate(ctx, func(doc scene.Document) error {
		var err error
		res, err = s.svc.SynchronizeHierarchy(ctx, doc)
		return err
	})
	return res, err
}

// Solo isolates the selected containers.
func (s *Session) Solo(ctx context.Context, selected []string) (solo.Result, error) {
	return s.soloOp(ctx, func(doc scene.Document) (solo.Result, error) {
		return s.svc.Solo(ctx, doc, selected)
	})
}

// Restore returns the scene to normal mode.
func (s *Session) Restore(ctx context.Context) (solo.Result, error) {
	return s.soloOp(ctx, func(doc scene.Document) (solo.Result, error) {
		return s.svc.Restore(ctx, doc)
	})
}

// Toggle restores a soloed scene, or solos selected in a normal one.
func (s *Session) Toggle(ctx context.Context, selected []string) (solo.Result, error) {
	return s.soloOp(ctx, func(doc scene.Document) (solo.Result, error) {
		return s.svc.Toggle(ctx, doc, selected)
	})
}

func (s *Session) soloOp(ctx context.Context, op func(doc scene.Document) (solo.Result, error)) (solo.Result, error) {
	var res solo.Result
	err := s.mutate(ctx, func(doc scene.Document) error {
		var err error
		res, err = op(doc)
		return err
	})
	return res, err
}

// Mode reads the isolation state.
func (s *Session) Mode(ctx context.Context) (solo.State, error) {
	var st solo.State
	err := s.do(ctx, func(doc scene.Document) error {
		var err error
		st, err = s.svc.Mode(doc)
		return err
	})
	return st, err
}

// Containers lists the document's containers.
func (s *Session) Containers(ctx context.Context) ([]scene.Container, error) {
	var out []scene.Container
	err := s.do(ctx, func(doc scene.Document) error {
		var err error
		out, err = doc.Containers()
		return err
	})
	return out, err
}

// ShotInfo is the active shot and the shots it can be switched to.
type ShotInfo struct {
	Active string   `json:"active"`
	Shots  []string `json:"shots"`
}

// Shot returns the active shot and the shot list.
func (s *Session) Shot(ctx context.Context) (ShotInfo, error) {
	var info ShotInfo
	err := s.do(ctx, func(doc scene.Document) error {
		var err error
		if info.Active, err = s.svc.ActiveShot(doc); err != nil {
			return err
		}
		info.Shots, err = doc.Shots()
		return err
	})
	return info, err
}

// SetShot activates a shot.
func (s *Session) SetShot(ctx context.Context, name string) error {
	return s.mutate(ctx, func(doc scene.Document) error {
		return s.svc.SetActiveShot(doc, name)
	})
}

// =============================================================================
// Artist and snapshots
// =============================================================================

// Artist returns the saved artist name.
func (s *Session) Artist() (string, error) {
	if s.settings == nil {
		return "", ErrSettingsUnavailable
	}
	return s.settings.Artist(), nil
}

// SetArtist validates and saves the artist name, returning the stored
// form.
func (s *Session) SetArtist(name string) (string, error) {
	if s.settings == nil {
		return "", ErrSettingsUnavailable
	}
	return s.settings.SetArtist(name)
}

// SnapshotRequest describes the open document for snapshot filing. It is
// a snapshot.RequestFunc.
func (s *Session) SnapshotRequest(ctx context.Context) (snapshot.Request, error) {
	var req snapshot.Request
	err := s.do(ctx, func(doc scene.Document) error {
		req.DocPath = doc.Path()
		req.DocName = doc.Name()
		return nil
	})
	if err != nil {
		return snapshot.Request{}, err
	}
	if s.settings != nil {
		req.Artist = s.settings.Artist()
	}
	return req, nil
}

// Snapshot files the newest snapshot for the open document.
func (s *Session) Snapshot(ctx context.Context) (snapshot.Result, error) {
	if s.snapshots == nil {
		return snapshot.Result{}, ErrSnapshotsUnavailable
	}
	req, err := s.SnapshotRequest(ctx)
	if err != nil {
		return snapshot.Result{}, err
	}
	return s.snapshots.Process(ctx, req)
}

// Snapshots returns the snapshot manager, or nil.
func (s *Session) Snapshots() *snapshot.Manager {
	return s.snapshots
}

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
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/fswatch"
	"github.com/AleutianAI/guardian/services/guardian/poll"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/scene/memhost"
	"github.com/AleutianAI/guardian/services/guardian/settings"
	"golang.org/x/sync/errgroup"
)

// errNotSavable is returned when committing a document that is not backed
// by a scene file.
var errNotSavable = errors.New("document cannot be saved")

// =============================================================================
// Scene and service construction
// =============================================================================

// scenePathAbs returns the absolute --scene path, or errNoScene.
func (a *app) scenePathAbs() (string, error) {
	if a.scenePath == "" {
		return "", errNoScene
	}
	return filepath.Abs(a.scenePath)
}

// openScene loads the --scene file.
func (a *app) openScene() (*memhost.Document, string, error) {
	path, err := a.scenePathAbs()
	if err != nil {
		return nil, "", err
	}
	doc, err := memhost.Load(path)
	if err != nil {
		return nil, "", err
	}
	return doc, path, nil
}

func (a *app) newService() (*guardian.Service, error) {
	sc := guardian.ServiceConfigFrom(a.cfg)
	sc.Logger = a.log()
	return guardian.NewService(sc)
}

func (a *app) settingsStore() *settings.Store {
	return settings.New(a.cfg.PrefsDir(a.configPath))
}

// sessionOptions returns the options every command's session shares:
// artist settings, logging, and writing mutations back to path unless
// --dry-run is set.
func (a *app) sessionOptions(path string) []guardian.SessionOption {
	opts := []guardian.SessionOption{
		guardian.WithSettings(a.settingsStore()),
		guardian.WithSessionLogger(a.log()),
	}
	if path != "" && !a.dryRun {
		opts = append(opts, guardian.WithCommit(saveScene(path)))
	}
	return opts
}

// saveScene writes committed documents back to path.
func saveScene(path string) func(doc scene.Document) error {
	return func(doc scene.Document) error {
		d, ok := doc.(*memhost.Document)
		if !ok {
			return fmt.Errorf("%w: %T", errNotSavable, doc)
		}
		return d.Save(path)
	}
}

// =============================================================================
// One-shot sessions
// =============================================================================

// withSession opens the scene, runs a session on a private loop, calls fn,
// and stops the loop when fn returns.
//
// # Description
//
// The loop goroutine owns the document for the lifetime of fn, exactly as
// it does in watch and serve, so one-shot commands go through the same
// code paths. Mutations are saved to the scene file by the commit hook.
//
// # Outputs
//
//   - error: Scene loading failure, or fn's error.
func (a *app) withSession(ctx context.Context, fn func(ctx context.Context, s *guardian.Session, doc *memhost.Document) error) error {
	doc, path, err := a.openScene()
	if err != nil {
		return err
	}
	svc, err := a.newService()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := poll.NewLoop(poll.WithLoopLogger(a.log()))
	sess := guardian.NewSession(svc, loop, doc, a.sessionOptions(path)...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		return fn(gctx, sess, doc)
	})
	return g.Wait()
}

// =============================================================================
// Live reload
// =============================================================================

// watchScene reopens the scene in the session whenever its file changes on
// disk, until ctx is cancelled. A file that fails to parse is logged and
// the previous document stays open.
func watchScene(ctx context.Context, sess *guardian.Session, path string, logger *slog.Logger) error {
	reload := func(changes []fswatch.Change) {
		for _, c := range changes {
			if c.Op == fswatch.OpRemove {
				continue
			}
			doc, err := memhost.Load(path)
			if err != nil {
				logger.Warn("scene reload failed",
					slog.String("component", "cli"),
					slog.String("path", path),
					slog.String("error", err.Error()))
				return
			}
			if err := sess.Open(ctx, doc); err != nil && ctx.Err() == nil {
				logger.Warn("scene reopen failed",
					slog.String("component", "cli"),
					slog.String("error", err.Error()))
			}
			return
		}
	}

	w, err := fswatch.New([]string{filepath.Dir(path)}, reload,
		fswatch.WithFilter(fswatch.MatchFile(path)),
		fswatch.WithLogger(logger))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

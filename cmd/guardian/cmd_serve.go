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
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/poll"
	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/snapshot"
	"github.com/AleutianAI/guardian/services/guardian/telemetry"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// newServeCmd builds "guardian serve".
//
// # Description
//
// Runs the HTTP API over a live session: the poller validates the scene
// on every tick, the scene file is reloaded when it changes on disk, and
// snapshots landing in the snapshot directory are filed automatically.
// Without --scene the server starts with no document and reports
// "degraded" health until one is opened.
//
// # Examples
//
//	guardian serve -s shot_010.yaml
//	guardian serve -s shot_010.yaml --addr 127.0.0.1:8080 --debug
func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the guardian HTTP API for a live scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			if debug {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runServe(ctx, ln)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr from the config)")
	cmd.Flags().BoolVar(&debug, "debug", false, "gin debug mode")
	return cmd
}

// runServe serves on ln until ctx is cancelled or a component fails.
func (a *app) runServe(ctx context.Context, ln net.Listener) error {
	logger := a.log()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.FromConfig(a.cfg.Telemetry))
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(sctx); err != nil {
			logger.Warn("telemetry shutdown failed",
				slog.String("component", "cli"),
				slog.String("error", err.Error()))
		}
	}()

	var (
		doc  scene.Document
		path string
	)
	if a.scenePath != "" {
		d, p, err := a.openScene()
		if err != nil {
			_ = ln.Close()
			return err
		}
		doc, path = d, p
	}

	svc, err := a.newService()
	if err != nil {
		_ = ln.Close()
		return err
	}

	opts := a.sessionOptions(path)
	snapshots, closeSnapshots, err := a.snapshotManager(ctx)
	switch {
	case errors.Is(err, errSnapshotsNotConfigured):
	case err != nil:
		_ = ln.Close()
		return err
	default:
		defer closeSnapshots()
		opts = append(opts, guardian.WithSnapshots(snapshots))
	}

	loop := poll.NewLoop(poll.WithLoopLogger(logger))
	sess := guardian.NewSession(svc, loop, doc, opts...)

	var poller *poll.Poller
	if a.cfg.Poll.Enabled {
		poller, err = poll.NewPoller(loop, sess.Pass,
			poll.WithInterval(a.cfg.Poll.Interval),
			poll.WithPollerLogger(logger))
		if err != nil {
			_ = ln.Close()
			return err
		}
	}

	srv := &http.Server{
		Handler:           guardian.NewRouter(guardian.NewHandlers(sess), telemetry.MetricsHandler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})

	if poller != nil {
		poller.Start(gctx)
		defer poller.Stop()
	}

	if path != "" {
		g.Go(func() error {
			return watchScene(gctx, sess, path, logger)
		})
	}

	if snapshots != nil {
		keep := a.cfg.Snapshot.KeepLast
		g.Go(func() error {
			return snapshots.Watch(gctx, sess.SnapshotRequest, keep, func(r snapshot.WatchResult) {
				if r.Err == nil {
					logger.Info("snapshot filed",
						slog.String("component", "cli"),
						slog.String("output", r.Result.Output))
				}
			})
		})
	}

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	ux.Success("guardian listening on http://" + ln.Addr().String())
	logger.Info("server started",
		slog.String("component", "cli"),
		slog.String("addr", ln.Addr().String()),
		slog.String("scene", path))

	return g.Wait()
}

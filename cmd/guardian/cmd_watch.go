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
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/poll"
	"github.com/AleutianAI/guardian/services/guardian/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// newWatchCmd builds "guardian watch".
//
// # Description
//
// Keeps the scene open and re-validates it on every poll tick. The scene
// file is reloaded whenever it changes on disk. Without --tui a report is
// printed each time the results change; with --tui a full-screen view
// shows the latest report and offers check, sync and restore keys.
//
// # Examples
//
//	guardian watch -s shot_010.yaml
//	guardian watch -s shot_010.yaml --tui --interval 250ms
func newWatchCmd(a *app) *cobra.Command {
	var (
		useTUI   bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Validate the scene continuously",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Poll.Interval
			}
			if err := poll.ValidateInterval(interval); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.runWatch(ctx, cmd.OutOrStdout(), useTUI, interval)
		},
	}

	cmd.Flags().BoolVar(&useTUI, "tui", false, "full-screen live view")
	cmd.Flags().DurationVar(&interval, "interval", poll.DefaultInterval, "time between validation passes (100ms to 5s)")
	return cmd
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func (a *app) runWatch(ctx context.Context, out io.Writer, useTUI bool, interval time.Duration) error {
	doc, path, err := a.openScene()
	if err != nil {
		return err
	}
	svc, err := a.newService()
	if err != nil {
		return err
	}
	logger := a.log()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := a.sessionOptions(path)
	if !useTUI {
		opts = append(opts, guardian.WithSink(newChangePrinter(out, doc.Name())))
	}
	loop := poll.NewLoop(poll.WithLoopLogger(logger))
	sess := guardian.NewSession(svc, loop, doc, opts...)

	poller, err := poll.NewPoller(loop, sess.Pass,
		poll.WithInterval(interval),
		poll.WithPollerLogger(logger))
	if err != nil {
		return err
	}

	logger.Info("watching scene",
		slog.String("component", "cli"),
		slog.String("scene", path),
		slog.Duration("interval", interval))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	poller.Start(gctx)
	defer poller.Stop()

	g.Go(func() error {
		return watchScene(gctx, sess, path, logger)
	})

	if useTUI {
		g.Go(func() error {
			defer cancel()
			reports, unsubscribe := sess.Subscribe()
			defer unsubscribe()

			model := tui.NewWatchModel(sess, reports, doc.Name())
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("watch view: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// =============================================================================
// Plain output
// =============================================================================

// changePrinter prints a report whenever its outcome differs from the
// last one printed. Timestamps alone do not count as a change.
type changePrinter struct {
	out  io.Writer
	name string

	mu   sync.Mutex
	last string
}

func newChangePrinter(out io.Writer, name string) *changePrinter {
	return &changePrinter{out: out, name: name}
}

// Publish implements poll.Sink.
func (p *changePrinter) Publish(rep guardian.Report) {
	sig := reportSignature(rep)

	p.mu.Lock()
	defer p.mu.Unlock()
	if sig == p.last {
		return
	}
	p.last = sig
	_ = ux.RenderReport(p.out, tui.ReportView(rep, p.name))
}

// reportSignature summarizes the outcome of every detector: count,
// offender names and fault message.
func reportSignature(rep guardian.Report) string {
	var b strings.Builder
	for _, kind := range detect.Kinds() {
		if err, ok := rep.Faults[kind]; ok {
			fmt.Fprintf(&b, "%s!%s;", kind, err)
			continue
		}
		res, ok := rep.Results[kind]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s=%d", kind, res.Count)
		for _, o := range res.Offenders {
			b.WriteString(",")
			b.WriteString(o.Name)
		}
		b.WriteString(";")
	}
	return b.String()
}

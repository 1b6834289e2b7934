// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides the live watch screen for the guardian CLI.
//
// # Description
//
// The watch model shows the latest validation report in a scrollable
// viewport and offers single-key scene operations. Reports arrive from a
// session subscription; operations are submitted to the session, which
// runs them on the goroutine that owns the scene.
//
// # Thread Safety
//
// TUI components are designed for single-threaded use within the bubbletea
// event loop. Do not access TUI state from multiple goroutines.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/guardian/pkg/ux"
	"github.com/AleutianAI/guardian/services/guardian"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/solo"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// opTimeout bounds one operation triggered from the keyboard.
const opTimeout = 10 * time.Second

// Controller is the part of a guardian session the watch screen drives.
type Controller interface {
	Check(ctx context.Context) (guardian.Report, error)
	Synchronize(ctx context.Context) (hierarchy.Result, error)
	Restore(ctx context.Context) (solo.Result, error)
	Mode(ctx context.Context) (solo.State, error)
}

// =============================================================================
// Messages
// =============================================================================

// ReportMsg delivers a published report.
type ReportMsg struct {
	Report guardian.Report
}

// StatusMsg reports the outcome of an operation.
type StatusMsg struct {
	Text string
	Err  error
}

// ModeMsg delivers the current isolation state.
type ModeMsg struct {
	State solo.State
}

type streamClosedMsg struct{}

// =============================================================================
// Model
// =============================================================================

// WatchModel is the bubbletea model for the live watch screen.
type WatchModel struct {
	ctrl    Controller
	reports <-chan guardian.Report
	name    string

	viewport viewport.Model
	width    int
	height   int
	ready    bool

	report   *guardian.Report
	mode     solo.State
	status   string
	failed   bool
	closed   bool
	quitting bool
}

// NewWatchModel creates the watch screen.
//
// # Inputs
//
//   - ctrl: The session to drive.
//   - reports: A session subscription; closing it ends live updates.
//   - name: Document name for the header.
//
// # Outputs
//
//   - WatchModel: Ready-to-use model for tea.NewProgram.
func NewWatchModel(ctrl Controller, reports <-chan guardian.Report, name string) WatchModel {
	return WatchModel{
		ctrl:    ctrl,
		reports: reports,
		name:    name,
		status:  "waiting for the first pass",
	}
}

// Init implements tea.Model.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(waitForReport(m.reports), m.fetchMode())
}

func waitForReport(ch <-chan guardian.Report) tea.Cmd {
	return func() tea.Msg {
		rep, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return ReportMsg{Report: rep}
	}
}

// Update implements tea.Model.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 2
		footerHeight := 2
		viewportHeight := max(m.height-headerHeight-footerHeight, 1)

		if !m.ready {
			m.viewport = viewport.New(m.width, viewportHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = viewportHeight
		}
		m.updateViewportContent()

	case ReportMsg:
		rep := msg.Report
		m.report = &rep
		m.updateViewportContent()
		return m, waitForReport(m.reports)

	case streamClosedMsg:
		m.closed = true
		m.status = "live updates stopped"
		return m, nil

	case ModeMsg:
		m.mode = msg.State
		return m, nil

	case StatusMsg:
		m.failed = msg.Err != nil
		if msg.Err != nil {
			m.status = msg.Err.Error()
		} else {
			m.status = msg.Text
		}
		return m, m.fetchMode()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit

		case "r":
			m.status = "checking…"
			return m, m.runCheck()

		case "s":
			m.status = "synchronizing…"
			return m, m.runSync()

		case "x":
			m.status = "restoring…"
			return m, m.runRestore()

		case "j", "down":
			m.viewport.LineDown(1)

		case "k", "up":
			m.viewport.LineUp(1)

		case "g", "home":
			m.viewport.GotoTop()

		case "G", "end":
			m.viewport.GotoBottom()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.report == nil {
		b.WriteString(ux.Styles.Muted.Render("No report yet."))
	} else {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// =============================================================================
// Operations
// =============================================================================

func (m WatchModel) runCheck() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		rep, err := ctrl.Check(ctx)
		if err != nil {
			return StatusMsg{Err: err}
		}
		return StatusMsg{Text: fmt.Sprintf("checked: %d offenders", rep.Offenders())}
	}
}

func (m WatchModel) runSync() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := ctrl.Synchronize(ctx)
		var orphans *hierarchy.OrphanError
		if errors.As(err, &orphans) {
			return StatusMsg{Err: fmt.Errorf("sync aborted, ungrouped: %s", strings.Join(orphans.Names, ", "))}
		}
		if err != nil {
			return StatusMsg{Err: err}
		}
		return StatusMsg{Text: fmt.Sprintf("synced %d nodes, %d containers created", res.SyncedNodes, len(res.Created))}
	}
}

func (m WatchModel) runRestore() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		res, err := ctrl.Restore(ctx)
		if err != nil {
			return StatusMsg{Err: err}
		}
		return StatusMsg{Text: fmt.Sprintf("restored %d containers, %d nodes", res.ContainersChanged, res.NodesChanged)}
	}
}

func (m WatchModel) fetchMode() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		st, err := ctrl.Mode(ctx)
		if err != nil {
			return nil
		}
		return ModeMsg{State: st}
	}
}

// =============================================================================
// Rendering
// =============================================================================

func (m *WatchModel) updateViewportContent() {
	if !m.ready || m.report == nil {
		return
	}
	m.viewport.SetContent(ux.FormatReport(ReportView(*m.report, m.name)))
}

func (m WatchModel) renderHeader() string {
	title := ux.Styles.Title.Render("guardian") + " " + ux.Styles.Subtitle.Render(m.name)

	mode := ux.Styles.Muted.Render("normal")
	if m.mode.Mode == solo.ModeSolo {
		mode = ux.Styles.Warning.Render("solo: " + strings.Join(m.mode.Selected, ", "))
	}

	gap := m.width - lipgloss.Width(title) - lipgloss.Width(mode)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + mode
}

func (m WatchModel) renderFooter() string {
	status := ux.Styles.Muted.Render(m.status)
	if m.failed {
		status = ux.Styles.Error.Render(m.status)
	}
	keys := ux.Styles.Muted.Render("r check · s sync · x restore · j/k scroll · q quit")
	return status + "\n" + keys
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the guardian CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Guardian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Highlights, passing checks
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Titles
	ColorTealDeep    = lipgloss.Color("#16858E") // Borders
	ColorSlate       = lipgloss.Color("#2C4A54") // Muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#2C4A54")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

var (
	outMu  sync.RWMutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects the print helpers. Commands pass their cobra
// writers so output can be captured in tests. A nil writer leaves the
// current one in place.
func SetOutput(out, errOut io.Writer) {
	outMu.Lock()
	defer outMu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func writers() (io.Writer, io.Writer) {
	outMu.RLock()
	defer outMu.RUnlock()
	return stdout, stderr
}

// Print helpers that respect personality level

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	out, _ := writers()
	fmt.Fprintln(out, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	out, _ := writers()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	out, errOut := writers()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(errOut, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	out, errOut := writers()
	switch GetPersonality().Level {
	case PersonalityMachine:
		fmt.Fprintf(errOut, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(out, "%s %s\n", IconError.Render(), text)
	default:
		fmt.Fprintf(out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	out, _ := writers()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintln(out, text)
		return
	}
	fmt.Fprintf(out, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	out, _ := writers()
	fmt.Fprintln(out, Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	out, _ := writers()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(out, Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	out, errOut := writers()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(errOut, "WARN %s: %s\n", title, content)
		return
	}
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Fprintln(out, Styles.WarningBox.Width(60).Render(titleLine+"\n"+content))
}

// KeyValue prints one labelled value, e.g. "active shot: sh010".
func KeyValue(key, value string) {
	out, _ := writers()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(out, "%s\t%s\n", key, value)
		return
	}
	fmt.Fprintf(out, "%s %s\n", Styles.Muted.Render(key+":"), Styles.Bold.Render(value))
}

// Summary prints a summary line with counts
func Summary(passed, failed, faulted int) {
	out, _ := writers()
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(out, "SUMMARY: passed=%d failed=%d faulted=%d\n", passed, failed, faulted)
		return
	}
	fmt.Fprintf(out, "\n%s %s  %s %s  %s %s\n",
		Styles.Success.Render(fmt.Sprintf("%d", passed)), Styles.Muted.Render("passed"),
		Styles.Warning.Render(fmt.Sprintf("%d", failed)), Styles.Muted.Render("failed"),
		Styles.Error.Render(fmt.Sprintf("%d", faulted)), Styles.Muted.Render("faulted"),
	)
}

func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// captureOutput redirects the print helpers for the duration of f.
func captureOutput(t *testing.T, level PersonalityLevel, f func()) (string, string) {
	t.Helper()
	origP := GetPersonality()
	SetPersonalityLevel(level)

	var out, errOut bytes.Buffer
	SetOutput(&out, &errOut)
	defer func() {
		SetOutput(os.Stdout, os.Stderr)
		SetPersonality(origP)
	}()

	f()
	return out.String(), errOut.String()
}

// =============================================================================
// Icon.Render Tests
// =============================================================================

func TestIcon_Render(t *testing.T) {
	for _, icon := range []Icon{IconSuccess, IconWarning, IconError, IconPending} {
		if got := icon.Render(); !strings.Contains(got, string(icon)) {
			t.Errorf("%q: rendered %q does not contain the icon", icon, got)
		}
	}
	if got := IconArrow.Render(); got != string(IconArrow) {
		t.Errorf("expected unstyled arrow, got %q", got)
	}
}

// =============================================================================
// Print Helper Tests
// =============================================================================

func TestPrintHelpers_MachineMode(t *testing.T) {
	tests := []struct {
		name    string
		print   func()
		wantOut string
		wantErr string
	}{
		{name: "title", print: func() { Title("Checks") }},
		{name: "success", print: func() { Success("synced") }, wantOut: "OK: synced\n"},
		{name: "warning", print: func() { Warning("2 orphans") }, wantErr: "WARN: 2 orphans\n"},
		{name: "error", print: func() { Error("no scene") }, wantErr: "ERROR: no scene\n"},
		{name: "info", print: func() { Info("watching") }, wantOut: "watching\n"},
		{name: "muted", print: func() { Muted("hint") }},
		{name: "box", print: func() { Box("Solo", "Props") }, wantOut: "Solo: Props\n"},
		{name: "warning box", print: func() { WarningBox("Orphans", "floor") }, wantErr: "WARN Orphans: floor\n"},
		{name: "key value", print: func() { KeyValue("active shot", "sh010") }, wantOut: "active shot\tsh010\n"},
		{name: "summary", print: func() { Summary(3, 1, 1) }, wantOut: "SUMMARY: passed=3 failed=1 faulted=1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := captureOutput(t, PersonalityMachine, tt.print)
			if out != tt.wantOut {
				t.Errorf("stdout = %q, want %q", out, tt.wantOut)
			}
			if errOut != tt.wantErr {
				t.Errorf("stderr = %q, want %q", errOut, tt.wantErr)
			}
		})
	}
}

func TestPrintHelpers_FullMode(t *testing.T) {
	tests := []struct {
		name  string
		print func()
		want  []string
	}{
		{name: "title", print: func() { Title("Checks") }, want: []string{"Checks"}},
		{name: "success", print: func() { Success("synced") }, want: []string{"✓", "synced"}},
		{name: "warning", print: func() { Warning("2 orphans") }, want: []string{"⚠", "2 orphans"}},
		{name: "error", print: func() { Error("no scene") }, want: []string{"✗", "no scene"}},
		{name: "info", print: func() { Info("watching") }, want: []string{"│", "watching"}},
		{name: "box", print: func() { Box("Solo", "Props") }, want: []string{"Solo", "Props"}},
		{name: "key value", print: func() { KeyValue("active shot", "sh010") }, want: []string{"active shot:", "sh010"}},
		{name: "summary", print: func() { Summary(3, 1, 0) }, want: []string{"3", "passed", "failed", "faulted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := captureOutput(t, PersonalityFull, tt.print)
			if errOut != "" {
				t.Errorf("unexpected stderr %q", errOut)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output %q missing %q", out, w)
				}
			}
		})
	}
}

func TestSetOutput_NilKeepsWriter(t *testing.T) {
	var out bytes.Buffer
	SetOutput(&out, nil)
	defer SetOutput(os.Stdout, os.Stderr)

	SetOutput(nil, nil)
	got, _ := writers()
	if got != &out {
		t.Error("nil writer replaced stdout")
	}
}

// =============================================================================
// repeatChar Tests
// =============================================================================

func TestRepeatChar(t *testing.T) {
	tests := []struct {
		c    rune
		n    int
		want string
	}{
		{'─', 3, "───"},
		{'x', 1, "x"},
		{'x', 0, ""},
		{'x', -2, ""},
	}
	for _, tt := range tests {
		if got := repeatChar(tt.c, tt.n); got != tt.want {
			t.Errorf("repeatChar(%q, %d) = %q, want %q", tt.c, tt.n, got, tt.want)
		}
	}
}

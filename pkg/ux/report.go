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
	"fmt"
	"io"
	"strings"
	"time"
)

// OffenderLine is one flagged item in a check.
type OffenderLine struct {
	Name   string
	Reason string
}

// CheckLine is the display form of one detector result.
type CheckLine struct {
	// Name is the detector name, e.g. "lights".
	Name string

	// Count is the number of offenders found.
	Count int

	// Truncated is true when the scan stopped at its node cap.
	Truncated bool

	// Fault is the error message when the detector could not run.
	Fault string

	// Offenders are the retained offenders (may be fewer than Count).
	Offenders []OffenderLine
}

// ReportView is the display form of one validation pass.
type ReportView struct {
	Document  string
	CheckedAt time.Time
	Checks    []CheckLine
}

// Counts returns the number of passing, failing and faulted checks.
func (v ReportView) Counts() (passed, failed, faulted int) {
	for _, c := range v.Checks {
		switch {
		case c.Fault != "":
			faulted++
		case c.Count > 0:
			failed++
		default:
			passed++
		}
	}
	return passed, failed, faulted
}

// RenderReport writes a report to w at the current personality level.
func RenderReport(w io.Writer, v ReportView) error {
	_, err := io.WriteString(w, FormatReport(v))
	return err
}

// FormatReport formats a report at the current personality level.
//
// Machine output is one tab-separated record per line:
//
//	CHECK	<name>	<count>	<ok|fail|fault>
//	OFFENDER	<name>	<offender>	<reason>
//	FAULT	<name>	<message>
func FormatReport(v ReportView) string {
	p := GetPersonality()
	var b strings.Builder

	if p.Level == PersonalityMachine {
		for _, c := range v.Checks {
			status := "ok"
			switch {
			case c.Fault != "":
				status = "fault"
			case c.Count > 0:
				status = "fail"
			}
			fmt.Fprintf(&b, "CHECK\t%s\t%d\t%s\n", c.Name, c.Count, status)
			if c.Fault != "" {
				fmt.Fprintf(&b, "FAULT\t%s\t%s\n", c.Name, oneLine(c.Fault))
			}
			for _, o := range c.Offenders {
				fmt.Fprintf(&b, "OFFENDER\t%s\t%s\t%s\n", c.Name, o.Name, o.Reason)
			}
		}
		return b.String()
	}

	title := v.Document
	if !v.CheckedAt.IsZero() {
		title += "  " + Styles.Muted.Render(v.CheckedAt.Format("15:04:05"))
	}
	b.WriteString(Styles.Title.Render(title))
	b.WriteString("\n")
	if p.Level == PersonalityFull {
		b.WriteString(Styles.Muted.Render(repeatChar('─', 40)))
		b.WriteString("\n")
	}

	for _, c := range v.Checks {
		b.WriteString(formatCheck(c, p))
	}
	return b.String()
}

func formatCheck(c CheckLine, p Personality) string {
	var b strings.Builder
	name := fmt.Sprintf("%-11s", c.Name)

	switch {
	case c.Fault != "":
		fmt.Fprintf(&b, "%s %s %s\n", IconError.Render(), name, Styles.Error.Render("fault: "+oneLine(c.Fault)))
		return b.String()
	case c.Count == 0:
		fmt.Fprintf(&b, "%s %s %s\n", IconSuccess.Render(), name, Styles.Muted.Render("clean"))
		return b.String()
	}

	count := fmt.Sprintf("%d offender", c.Count)
	if c.Count != 1 {
		count += "s"
	}
	if c.Truncated {
		count += " (scan truncated)"
	}
	fmt.Fprintf(&b, "%s %s %s\n", IconWarning.Render(), name, Styles.Warning.Render(count))

	if p.Level == PersonalityMinimal {
		return b.String()
	}
	shown := min(len(c.Offenders), p.MaxOffenders)
	for _, o := range c.Offenders[:shown] {
		line := o.Name
		if o.Reason != "" {
			line += " " + Styles.Muted.Render(o.Reason)
		}
		fmt.Fprintf(&b, "    %s %s\n", Styles.Muted.Render(string(IconBullet)), line)
	}
	if rest := c.Count - shown; rest > 0 && shown > 0 {
		fmt.Fprintf(&b, "    %s\n", Styles.Muted.Render(fmt.Sprintf("… and %d more", rest)))
	}
	return b.String()
}

// oneLine keeps the first line of a multi-line message, such as a fault
// that carries a stack trace.
func oneLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

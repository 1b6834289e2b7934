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
	"strings"
	"testing"
	"time"
)

func testView() ReportView {
	return ReportView{
		Document:  "shot_010.c4d",
		CheckedAt: time.Date(2025, 3, 7, 14, 30, 0, 0, time.UTC),
		Checks: []CheckLine{
			{Name: "lights", Count: 3, Offenders: []OffenderLine{
				{Name: "key", Reason: "outside a light group"},
				{Name: "fill", Reason: "outside a light group"},
				{Name: "rim", Reason: "outside a light group"},
			}},
			{Name: "visibility"},
			{Name: "presets", Fault: "detector fault: presets: locked\ngoroutine 1"},
			{Name: "camera", Count: 12, Truncated: true, Offenders: []OffenderLine{{Name: "cam"}}},
		},
	}
}

func withLevel(t *testing.T, level PersonalityLevel) {
	t.Helper()
	orig := GetPersonality()
	SetPersonalityLevel(level)
	t.Cleanup(func() { SetPersonality(orig) })
}

func TestReportView_Counts(t *testing.T) {
	passed, failed, faulted := testView().Counts()
	if passed != 1 || failed != 2 || faulted != 1 {
		t.Errorf("Counts() = %d, %d, %d; want 1, 2, 1", passed, failed, faulted)
	}
}

func TestFormatReport_Machine(t *testing.T) {
	withLevel(t, PersonalityMachine)

	got := FormatReport(testView())
	want := strings.Join([]string{
		"CHECK\tlights\t3\tfail",
		"OFFENDER\tlights\tkey\toutside a light group",
		"OFFENDER\tlights\tfill\toutside a light group",
		"OFFENDER\tlights\trim\toutside a light group",
		"CHECK\tvisibility\t0\tok",
		"CHECK\tpresets\t0\tfault",
		"FAULT\tpresets\tdetector fault: presets: locked",
		"CHECK\tcamera\t12\tfail",
		"OFFENDER\tcamera\tcam\t",
	}, "\n") + "\n"
	if got != want {
		t.Errorf("machine report mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatReport_Standard(t *testing.T) {
	withLevel(t, PersonalityStandard)
	SetPersonality(Personality{Level: PersonalityStandard, MaxOffenders: 2})

	got := FormatReport(testView())
	for _, want := range []string{
		"shot_010.c4d",
		"14:30:00",
		"3 offenders",
		"key",
		"fill",
		"… and 1 more",
		"clean",
		"fault: detector fault: presets: locked",
		"12 offenders (scan truncated)",
		"… and 11 more",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("report missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "rim") {
		t.Error("offender beyond MaxOffenders was printed")
	}
	if strings.Contains(got, "goroutine") {
		t.Error("fault stack was printed")
	}
}

func TestFormatReport_Minimal(t *testing.T) {
	withLevel(t, PersonalityMinimal)

	got := FormatReport(testView())
	if !strings.Contains(got, "3 offenders") {
		t.Errorf("missing count:\n%s", got)
	}
	if strings.Contains(got, "key") {
		t.Error("minimal output listed offenders")
	}
}

func TestFormatReport_SingularOffender(t *testing.T) {
	withLevel(t, PersonalityStandard)

	got := FormatReport(ReportView{Document: "a", Checks: []CheckLine{{Name: "presets", Count: 1}}})
	if !strings.Contains(got, "1 offender") || strings.Contains(got, "1 offenders") {
		t.Errorf("unexpected count wording:\n%s", got)
	}
}

func TestRenderReport(t *testing.T) {
	withLevel(t, PersonalityMachine)

	var buf bytes.Buffer
	if err := RenderReport(&buf, testView()); err != nil {
		t.Fatalf("RenderReport: %v", err)
	}
	if buf.String() != FormatReport(testView()) {
		t.Error("RenderReport and FormatReport disagree")
	}
}

func TestOneLine(t *testing.T) {
	if got := oneLine("a\nb\nc"); got != "a" {
		t.Errorf("oneLine = %q", got)
	}
	if got := oneLine("plain"); got != "plain" {
		t.Errorf("oneLine = %q", got)
	}
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, detect.Kinds(), cfg.Checks.Kinds())
	assert.Equal(t, []detect.Category{detect.CategoryLight, detect.CategoryCamera},
		cfg.Hierarchy.ExemptCategories())
}

// TestCreateDefault verifies default config creation on first load.
func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "nested", "guardian.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var onDisk Config
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, CurrentConfigVersion, onDisk.Meta.Version)
	assert.Equal(t, 500*time.Millisecond, onDisk.Poll.Interval)
	assert.Contains(t, string(data), "interval: 500ms")
}

func TestDecode_OverridesDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
poll:
  interval: 2s
checks:
  enabled: [lights, presets]
  presets: [Pre-Render, Final]
hierarchy:
  exempt: [camera]
`))
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Poll.Interval)
	assert.True(t, cfg.Poll.Enabled, "unset keys keep defaults")
	assert.Equal(t, []detect.Kind{detect.KindLights, detect.KindPresets}, cfg.Checks.Kinds())
	assert.Equal(t, []string{"pre_render", "final"}, cfg.Checks.Presets)
	assert.Equal(t, []detect.Category{detect.CategoryCamera}, cfg.Hierarchy.ExemptCategories())
	assert.Equal(t, detect.DefaultOffenderCap, cfg.Checks.OffenderCap)
}

func TestDecode_Empty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"interval too short", "poll:\n  interval: 50ms\n"},
		{"interval too long", "poll:\n  interval: 6s\n"},
		{"unknown detector", "checks:\n  enabled: [lights, shaders]\n"},
		{"zero offender cap", "checks:\n  offender_cap: 0\n"},
		{"empty presets", "checks:\n  presets: []\n"},
		{"unknown exempt category", "hierarchy:\n  exempt: [polygon]\n"},
		{"bad exporter", "telemetry:\n  traces: jaeger\n"},
		{"otlp without endpoint", "telemetry:\n  traces: otlp\n"},
		{"bad level", "logging:\n  level: loud\n"},
		{"bad addr", "server:\n  addr: nowhere\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestDecode_UnknownKey(t *testing.T) {
	_, err := Decode(strings.NewReader("pol:\n  interval: 1s\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidConfig)
}

func TestPrefsDir(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "/etc/guardian", cfg.PrefsDir("/etc/guardian/guardian.yaml"))

	cfg.Prefs.Dir = "/home/artist/prefs"
	assert.Equal(t, "/home/artist/prefs", cfg.PrefsDir("/etc/guardian/guardian.yaml"))
}

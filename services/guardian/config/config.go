// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the guardian configuration file.
package config

import (
	"time"

	"github.com/AleutianAI/guardian/services/guardian/detect"
	"github.com/AleutianAI/guardian/services/guardian/hierarchy"
	"github.com/AleutianAI/guardian/services/guardian/poll"
	"github.com/AleutianAI/guardian/services/guardian/traverse"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

// Config is the root of guardian.yaml.
type Config struct {
	Meta      MetaConfig      `yaml:"meta"`
	Poll      PollConfig      `yaml:"poll"`
	Checks    ChecksConfig    `yaml:"checks"`
	Hierarchy HierarchyConfig `yaml:"hierarchy"`
	Solo      SoloConfig      `yaml:"solo"`
	Server    ServerConfig    `yaml:"server"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Prefs     PrefsConfig     `yaml:"prefs"`
}

// MetaConfig identifies the file format.
type MetaConfig struct {
	Version string `yaml:"version" validate:"required"`
}

// PollConfig controls the periodic validation pass.
type PollConfig struct {
	Enabled bool `yaml:"enabled"`

	// Interval between passes. Must lie within 100ms..5s.
	Interval time.Duration `yaml:"interval" validate:"min=100ms,max=5s"`
}

// ChecksConfig controls the detectors.
type ChecksConfig struct {
	// Enabled lists the detector kinds to run, in display order.
	Enabled []string `yaml:"enabled" validate:"dive,oneof=lights visibility keyframes camera presets"`

	OffenderCap int           `yaml:"offender_cap" validate:"gte=1,lte=10000"`
	MaxNodes    int           `yaml:"max_nodes" validate:"gte=1"`
	MaxDepth    int           `yaml:"max_depth" validate:"gte=1"`
	CacheTTL    time.Duration `yaml:"cache_ttl" validate:"gt=0"`

	// LightGroupNames are the ancestor names that count as a light group.
	LightGroupNames []string `yaml:"light_group_names" validate:"min=1,dive,required"`

	// Presets is the render-setting allow-list, normalized on load.
	Presets []string `yaml:"presets" validate:"min=1,dive,required"`

	FilmOffsetEpsilon float64 `yaml:"film_offset_epsilon" validate:"gt=0"`
}

// HierarchyConfig controls the hierarchy synchronizer.
type HierarchyConfig struct {
	// Exempt lists the node categories allowed at top level outside a group.
	Exempt   []string `yaml:"exempt" validate:"dive,oneof=light camera other"`
	MaxNodes int      `yaml:"max_nodes" validate:"gte=1"`
}

// SoloConfig controls the isolation controller.
type SoloConfig struct {
	MaxNodes int `yaml:"max_nodes" validate:"gte=1"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required,hostname_port"`
}

// SnapshotConfig controls the snapshot manager.
type SnapshotConfig struct {
	// Dir is where the renderer drops snapshot images.
	Dir string `yaml:"dir"`

	// FallbackRoot is used for output when the document has never been
	// saved.
	FallbackRoot string `yaml:"fallback_root"`

	// Converter is the conversion command. "{src}" and "{dst}" are
	// replaced with the input and output paths.
	Converter []string `yaml:"converter"`

	// KeepLast is how many snapshots Cleanup keeps. Zero disables cleanup.
	KeepLast int `yaml:"keep_last" validate:"gte=0"`

	// LedgerDir holds the processed-file ledger. Empty keeps it in memory.
	LedgerDir string        `yaml:"ledger_dir"`
	LedgerTTL time.Duration `yaml:"ledger_ttl" validate:"gte=0"`

	// Bucket, when set, publishes processed images to this GCS bucket.
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

// TelemetryConfig selects the OpenTelemetry exporters.
type TelemetryConfig struct {
	Traces       string `yaml:"traces" validate:"oneof=none stdout otlp"`
	Metrics      string `yaml:"metrics" validate:"oneof=none stdout prometheus"`
	OTLPEndpoint string `yaml:"otlp_endpoint" validate:"required_if=Traces otlp"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`

	// Dir, when set, also writes JSON logs to <dir>/guardian_<date>.log.
	Dir string `yaml:"dir"`
}

// PrefsConfig locates the artist preferences file.
type PrefsConfig struct {
	// Dir holds guardian_prefs.yaml. Empty means the config directory.
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	kinds := detect.Kinds()
	enabled := make([]string, len(kinds))
	for i, k := range kinds {
		enabled[i] = string(k)
	}

	return Config{
		Meta: MetaConfig{Version: CurrentConfigVersion},
		Poll: PollConfig{
			Enabled:  true,
			Interval: poll.DefaultInterval,
		},
		Checks: ChecksConfig{
			Enabled:           enabled,
			OffenderCap:       detect.DefaultOffenderCap,
			MaxNodes:          traverse.DefaultMaxNodes,
			MaxDepth:          traverse.DefaultMaxDepth,
			CacheTTL:          500 * time.Millisecond,
			LightGroupNames:   detect.DefaultLightGroupNames(),
			Presets:           detect.DefaultPresets(),
			FilmOffsetEpsilon: detect.DefaultFilmOffsetEpsilon,
		},
		Hierarchy: HierarchyConfig{
			Exempt:   []string{"light", "camera"},
			MaxNodes: hierarchy.DefaultMaxNodes,
		},
		Solo: SoloConfig{MaxNodes: hierarchy.DefaultMaxNodes},
		Server: ServerConfig{
			Addr: "127.0.0.1:12230",
		},
		Snapshot: SnapshotConfig{
			Converter: []string{"oiiotool", "{src}", "-o", "{dst}"},
			KeepLast:  10,
			LedgerTTL: 30 * 24 * time.Hour,
		},
		Telemetry: TelemetryConfig{
			Traces:  "none",
			Metrics: "prometheus",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Kinds returns the enabled detector kinds. Entries are validated, so
// parsing cannot fail on a loaded config.
func (c ChecksConfig) Kinds() []detect.Kind {
	out := make([]detect.Kind, 0, len(c.Enabled))
	for _, s := range c.Enabled {
		if k, err := detect.ParseKind(s); err == nil {
			out = append(out, k)
		}
	}
	return out
}

// DetectorOptions converts the section into detector options.
func (c ChecksConfig) DetectorOptions() []detect.Option {
	return []detect.Option{
		detect.WithOffenderCap(c.OffenderCap),
		detect.WithMaxNodes(c.MaxNodes),
		detect.WithMaxDepth(c.MaxDepth),
		detect.WithLightGroupNames(c.LightGroupNames...),
		detect.WithPresets(c.Presets...),
		detect.WithFilmOffsetEpsilon(c.FilmOffsetEpsilon),
	}
}

// ExemptCategories converts Exempt into classifier categories.
func (c HierarchyConfig) ExemptCategories() []detect.Category {
	out := make([]detect.Category, 0, len(c.Exempt))
	for _, s := range c.Exempt {
		switch s {
		case "light":
			out = append(out, detect.CategoryLight)
		case "camera":
			out = append(out, detect.CategoryCamera)
		case "other":
			out = append(out, detect.CategoryOther)
		}
	}
	return out
}

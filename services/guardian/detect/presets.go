// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package detect

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// DefaultPresets returns the render-setting allow-list.
func DefaultPresets() []string {
	return []string{"previz", "pre_render", "render", "stills"}
}

var presetReplacer = strings.NewReplacer("-", "_", " ", "_")

// NormalizePreset lowercases name and maps '-' and ' ' to '_', so
// "Pre-Render", "pre render" and "PRE_RENDER" all become "pre_render".
func NormalizePreset(name string) string {
	return presetReplacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

// Presets flags render settings whose normalized name is not in the
// allow-list, and repeated settings that normalize to the same allowed name.
// Offenders carry Node 0 and the setting's original name.
type Presets struct {
	opts    options
	allowed map[string]struct{}
}

// NewPresets creates the preset compliance detector.
func NewPresets(opts ...Option) *Presets {
	o := applyOptions(opts)
	allowed := make(map[string]struct{}, len(o.presets))
	for _, p := range o.presets {
		allowed[NormalizePreset(p)] = struct{}{}
	}
	return &Presets{opts: o, allowed: allowed}
}

// Kind implements Detector.
func (d *Presets) Kind() Kind { return KindPresets }

// Detect implements Detector.
func (d *Presets) Detect(_ context.Context, r scene.Reader) (CheckResult, error) {
	col := newCollector(KindPresets, d.opts.offenderCap)

	settings, err := r.RenderSettings()
	if err != nil {
		return CheckResult{}, fmt.Errorf("reading render settings: %w", err)
	}

	seen := make(map[string]string, len(settings))
	for _, s := range settings {
		norm := NormalizePreset(s.Name)

		var reason string
		if _, ok := d.allowed[norm]; !ok {
			reason = fmt.Sprintf("%q is not an approved preset", norm)
		} else if first, dup := seen[norm]; dup {
			reason = fmt.Sprintf("duplicate of %q", first)
		} else {
			seen[norm] = s.Name
			continue
		}

		if !col.add(Offender{Name: s.Name, Reason: reason}) {
			break
		}
	}
	return col.result(nil), nil
}

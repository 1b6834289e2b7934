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
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"github.com/AleutianAI/guardian/services/guardian/traverse"
)

// DefaultLightGroupNames returns the ancestor names that mark a lights group.
func DefaultLightGroupNames() []string {
	return []string{"light", "lights", "lighting"}
}

// Lights flags light nodes that are not under a lights group.
type Lights struct {
	classifier *Classifier
	opts       options
	groups     map[string]struct{}
}

// NewLights creates the lights grouping detector.
//
// Inputs:
//   - classifier: Shared type classifier. Must not be nil.
//   - opts: WithLightGroupNames, WithOffenderCap and traversal options apply.
func NewLights(classifier *Classifier, opts ...Option) *Lights {
	o := applyOptions(opts)
	groups := make(map[string]struct{}, len(o.lightGroups))
	for _, n := range o.lightGroups {
		groups[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return &Lights{classifier: classifier, opts: o, groups: groups}
}

// Kind implements Detector.
func (d *Lights) Kind() Kind { return KindLights }

// Detect implements Detector.
func (d *Lights) Detect(ctx context.Context, r scene.Reader) (CheckResult, error) {
	col := newCollector(KindLights, d.opts.offenderCap)
	w := d.opts.walker(ctx, r)

	// Whether some node at or above the queried one is a lights group.
	grouped := traverse.NewInherited(r, func(n scene.Node) (bool, bool) {
		_, ok := d.groups[strings.ToLower(n.Name)]
		return true, ok
	}, d.opts.maxDepth)

	for e := range w.All() {
		if !d.classifier.IsLight(r, e.Node.Type) {
			continue
		}
		if _, ok := grouped.Resolve(e.Node.Parent); ok {
			continue
		}
		if !col.add(Offender{
			Node:   e.Node.ID,
			Name:   e.Node.Name,
			Reason: "light is not inside a lights group",
		}) {
			break
		}
	}
	return col.result(w), nil
}

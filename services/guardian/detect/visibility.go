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

// Visibility flags nodes whose editor and render visibility contradict.
//
// A node is flagged when either holds:
//
//  1. it is hidden in the editor but renders, either explicitly or by
//     inheriting a render state that is on or never set, or
//  2. in either channel it is explicitly on while its nearest ancestor
//     with an explicit state in that channel is off.
type Visibility struct {
	opts options
}

// NewVisibility creates the visibility consistency detector.
func NewVisibility(opts ...Option) *Visibility {
	return &Visibility{opts: applyOptions(opts)}
}

// Kind implements Detector.
func (d *Visibility) Kind() Kind { return KindVisibility }

func explicitEditor(n scene.Node) (scene.Visibility, bool) {
	return n.EditorVisibility, n.EditorVisibility != scene.VisibilityInherit
}

func explicitRender(n scene.Node) (scene.Visibility, bool) {
	return n.RenderVisibility, n.RenderVisibility != scene.VisibilityInherit
}

// Detect implements Detector.
func (d *Visibility) Detect(ctx context.Context, r scene.Reader) (CheckResult, error) {
	col := newCollector(KindVisibility, d.opts.offenderCap)
	w := d.opts.walker(ctx, r)

	editor := traverse.NewInherited(r, explicitEditor, d.opts.maxDepth)
	render := traverse.NewInherited(r, explicitRender, d.opts.maxDepth)

	var reasons []string
	for e := range w.All() {
		n := e.Node
		reasons = reasons[:0]

		if n.EditorVisibility == scene.VisibilityOff {
			if v, ok := render.Resolve(n.ID); !ok || v == scene.VisibilityOn {
				reasons = append(reasons, "hidden in editor but visible in render")
			}
		}
		if n.EditorVisibility == scene.VisibilityOn {
			if v, ok := editor.Resolve(n.Parent); ok && v == scene.VisibilityOff {
				reasons = append(reasons, "editor visibility on under a hidden parent")
			}
		}
		if n.RenderVisibility == scene.VisibilityOn {
			if v, ok := render.Resolve(n.Parent); ok && v == scene.VisibilityOff {
				reasons = append(reasons, "render visibility on under a hidden parent")
			}
		}

		if len(reasons) == 0 {
			continue
		}
		if !col.add(Offender{
			Node:   n.ID,
			Name:   n.Name,
			Reason: strings.Join(reasons, "; "),
		}) {
			break
		}
	}
	return col.result(w), nil
}

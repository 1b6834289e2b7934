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
	"log/slog"
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// Keyframes flags nodes whose position tracks or rotation tracks address
// more than one axis. Tracks with unrecognized addressing are ignored.
type Keyframes struct {
	opts options
}

// NewKeyframes creates the keyframe sanity detector.
func NewKeyframes(opts ...Option) *Keyframes {
	return &Keyframes{opts: applyOptions(opts)}
}

// Kind implements Detector.
func (d *Keyframes) Kind() Kind { return KindKeyframes }

// axisSet is a bit set of scene.Axis values.
type axisSet uint8

func (s axisSet) with(a scene.Axis) axisSet { return s | 1<<uint(a) }

func (s axisSet) count() int {
	n := 0
	for a := scene.AxisX; a <= scene.AxisZ; a++ {
		if s&(1<<uint(a)) != 0 {
			n++
		}
	}
	return n
}

func (s axisSet) String() string {
	var parts []string
	for a := scene.AxisX; a <= scene.AxisZ; a++ {
		if s&(1<<uint(a)) != 0 {
			parts = append(parts, a.String())
		}
	}
	return strings.Join(parts, ",")
}

// Detect implements Detector.
func (d *Keyframes) Detect(ctx context.Context, r scene.Reader) (CheckResult, error) {
	col := newCollector(KindKeyframes, d.opts.offenderCap)
	w := d.opts.walker(ctx, r)

	for e := range w.All() {
		tracks, err := r.Tracks(e.Node.ID)
		if err != nil {
			d.opts.logger.Debug("skipping node with unreadable tracks",
				slog.String("component", "detect.keyframes"),
				slog.String("node", e.Node.ID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if len(tracks) < 2 {
			continue
		}

		var pos, rot axisSet
		for _, tr := range tracks {
			if tr.Axis == scene.AxisNone {
				continue
			}
			switch tr.Property {
			case scene.PropertyPosition:
				pos = pos.with(tr.Axis)
			case scene.PropertyRotation:
				rot = rot.with(tr.Axis)
			}
		}

		var reasons []string
		if pos.count() > 1 {
			reasons = append(reasons, "position keyed on "+pos.String())
		}
		if rot.count() > 1 {
			reasons = append(reasons, "rotation keyed on "+rot.String())
		}
		if len(reasons) == 0 {
			continue
		}
		if !col.add(Offender{
			Node:   e.Node.ID,
			Name:   e.Node.Name,
			Reason: strings.Join(reasons, "; "),
		}) {
			break
		}
	}
	return col.result(w), nil
}

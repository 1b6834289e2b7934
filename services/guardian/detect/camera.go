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
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/AleutianAI/guardian/services/guardian/scene"
)

// DefaultFilmOffsetEpsilon is the largest film offset treated as zero.
const DefaultFilmOffsetEpsilon = 1e-6

// Camera flags camera nodes with a non-zero horizontal or vertical film
// offset. Only the primary attribute paths are read; cameras without them
// are skipped.
type Camera struct {
	classifier *Classifier
	opts       options
}

// NewCamera creates the camera shift detector.
func NewCamera(classifier *Classifier, opts ...Option) *Camera {
	return &Camera{classifier: classifier, opts: applyOptions(opts)}
}

// Kind implements Detector.
func (d *Camera) Kind() Kind { return KindCamera }

// Detect implements Detector.
func (d *Camera) Detect(ctx context.Context, r scene.Reader) (CheckResult, error) {
	col := newCollector(KindCamera, d.opts.offenderCap)
	w := d.opts.walker(ctx, r)

	for e := range w.All() {
		if !d.classifier.IsCamera(r, e.Node.Type) {
			continue
		}

		var shifted []string
		for _, attr := range []string{scene.AttrFilmOffsetX, scene.AttrFilmOffsetY} {
			v, err := r.Attr(e.Node.ID, attr)
			if err != nil {
				if !errors.Is(err, scene.ErrAttributeUnavailable) {
					d.opts.logger.Debug("reading film offset failed",
						slog.String("component", "detect.camera"),
						slog.String("node", e.Node.ID.String()),
						slog.String("attr", attr),
						slog.String("error", err.Error()))
				}
				continue
			}
			if math.Abs(v) > d.opts.epsilon {
				shifted = append(shifted, fmt.Sprintf("%s=%g", attr, v))
			}
		}
		if len(shifted) == 0 {
			continue
		}
		if !col.add(Offender{
			Node:   e.Node.ID,
			Name:   e.Node.Name,
			Reason: "camera shift: " + strings.Join(shifted, ", "),
		}) {
			break
		}
	}
	return col.result(w), nil
}

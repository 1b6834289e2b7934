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
	"runtime/debug"
	"time"

	"github.com/AleutianAI/guardian/services/guardian/scene"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Run executes one detector pass with fault isolation.
//
// Description:
//
//	Calls d.Detect inside a span. A returned error or a panic is wrapped
//	with ErrDetectorFault; the panic value and stack are included in the
//	error text. Outcome and duration are recorded as metrics.
//
// Inputs:
//   - ctx: Context for tracing.
//   - d: The detector.
//   - r: The scene to inspect.
//
// Outputs:
//   - CheckResult: The pass result. Zero value on fault.
//   - error: Non-nil (wrapping ErrDetectorFault) if the pass faulted.
func Run(ctx context.Context, d Detector, r scene.Reader) (res CheckResult, err error) {
	kind := d.Kind()
	ctx, span := tracer.Start(ctx, "detect.Run",
		trace.WithAttributes(attribute.String("detect.kind", string(kind))))
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			res = CheckResult{}
			err = fmt.Errorf("%w: %s panicked: %v\n%s", ErrDetectorFault, kind, p, debug.Stack())
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "detector fault")
		} else {
			span.SetAttributes(
				attribute.Int("detect.count", res.Count),
				attribute.Bool("detect.truncated", res.Truncated),
			)
		}
		span.End()
		recordRun(ctx, kind, res, err, time.Since(start))
	}()

	res, err = d.Detect(ctx, r)
	if err != nil {
		return CheckResult{}, fmt.Errorf("%w: %s: %w", ErrDetectorFault, kind, err)
	}
	res.Kind = kind
	return res, nil
}

// =============================================================================
// Construction
// =============================================================================

// Build returns the detectors for kinds in the order given, sharing one
// classifier. Unknown kinds return ErrUnknownKind.
func Build(classifier *Classifier, kinds []Kind, opts ...Option) ([]Detector, error) {
	out := make([]Detector, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case KindLights:
			out = append(out, NewLights(classifier, opts...))
		case KindVisibility:
			out = append(out, NewVisibility(opts...))
		case KindKeyframes:
			out = append(out, NewKeyframes(opts...))
		case KindCamera:
			out = append(out, NewCamera(classifier, opts...))
		case KindPresets:
			out = append(out, NewPresets(opts...))
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, k)
		}
	}
	return out, nil
}

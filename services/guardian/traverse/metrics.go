// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traverse

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("guardian.traverse")

var (
	walkLatency  metric.Float64Histogram
	nodesVisited metric.Int64Counter
	nodesSkipped metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		walkLatency, err = meter.Float64Histogram(
			"guardian_traverse_duration_seconds",
			metric.WithDescription("Duration of bounded scene walks"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesVisited, err = meter.Int64Counter(
			"guardian_traverse_nodes_visited_total",
			metric.WithDescription("Nodes yielded by scene walks"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesSkipped, err = meter.Int64Counter(
			"guardian_traverse_nodes_skipped_total",
			metric.WithDescription("Unreadable nodes skipped by scene walks"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordWalk(ctx context.Context, s Stats, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("truncated", s.Truncated))
	walkLatency.Record(ctx, duration.Seconds(), attrs)
	nodesVisited.Add(ctx, int64(s.Visited))
	if s.Skipped > 0 {
		nodesSkipped.Add(ctx, int64(s.Skipped))
	}
}

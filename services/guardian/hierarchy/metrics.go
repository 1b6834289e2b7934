// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package hierarchy

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("guardian.hierarchy")

var (
	// syncTotal counts synchronizations by outcome (ok/orphans/error)
	syncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_hierarchy_sync_total",
		Help: "Hierarchy synchronizations by outcome",
	}, []string{"outcome"})

	// syncDuration tracks synchronization latency
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "guardian_hierarchy_sync_duration_seconds",
		Help:    "Hierarchy synchronization duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	// assignFailures counts per-node assignment failures
	assignFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "guardian_hierarchy_assign_failures_total",
		Help: "Nodes whose container assignment failed",
	})
)

func recordSync(_ context.Context, res Result, err error, duration time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrOrphans):
		outcome = "orphans"
	case err != nil:
		outcome = "error"
	}
	syncTotal.WithLabelValues(outcome).Inc()
	syncDuration.Observe(duration.Seconds())
	if res.Failed > 0 {
		assignFailures.Add(float64(res.Failed))
	}
}

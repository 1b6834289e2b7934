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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("guardian.detect")
	meter  = otel.Meter("guardian.detect")
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// runTotal counts detector passes by kind and outcome (clean/violations/fault)
	runTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_detector_runs_total",
		Help: "Detector passes by kind and outcome",
	}, []string{"kind", "outcome"})

	// offendersGauge is the offender count of the latest pass per kind
	offendersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "guardian_detector_offenders",
		Help: "Offenders reported by the latest pass per detector kind",
	}, []string{"kind"})
)

// ==============================================================================
// OpenTelemetry Metrics
// ==============================================================================

var (
	runLatency metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		runLatency, metricsErr = meter.Float64Histogram(
			"guardian_detector_duration_seconds",
			metric.WithDescription("Duration of detector passes"),
			metric.WithUnit("s"),
		)
	})
	return metricsErr
}

func recordRun(ctx context.Context, kind Kind, res CheckResult, err error, duration time.Duration) {
	outcome := "clean"
	switch {
	case err != nil:
		outcome = "fault"
	case res.Count > 0:
		outcome = "violations"
	}
	runTotal.WithLabelValues(string(kind), outcome).Inc()
	if err == nil {
		offendersGauge.WithLabelValues(string(kind)).Set(float64(res.Count))
	}

	if initMetrics() != nil {
		return
	}
	runLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.String("outcome", outcome),
	))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ==============================================================================
// Prometheus Metrics
// ==============================================================================

var (
	// lookupTotal counts lookups by cache and result (hit/miss)
	lookupTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_cache_lookups_total",
		Help: "Result cache lookups by cache and result",
	}, []string{"cache", "result"})

	// purgeTotal counts full purges, including document switches
	purgeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_cache_purges_total",
		Help: "Result cache purges by cache",
	}, []string{"cache"})
)

// ==============================================================================
// OpenTelemetry Metrics
// ==============================================================================

var meter = otel.Meter("guardian.cache")

var (
	otelLookups metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		otelLookups, metricsErr = meter.Int64Counter(
			"guardian.cache.lookups",
			metric.WithDescription("Result cache lookups"),
		)
	})
	return metricsErr
}

func recordLookup(ctx context.Context, name string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	lookupTotal.WithLabelValues(name, result).Inc()

	if err := initMetrics(); err != nil {
		return
	}
	otelLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", name),
		attribute.Bool("hit", hit),
	))
}

func recordPurge(_ context.Context, name string) {
	purgeTotal.WithLabelValues(name).Inc()
}

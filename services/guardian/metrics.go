// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package guardian

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("guardian.service")

var (
	// validateTotal counts validation passes by source (cache/run/fault) per kind
	validateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardian_validate_results_total",
		Help: "Detector results served by Validate, by kind and source",
	}, []string{"kind", "source"})

	// eventSubscribers is the number of open report streams
	eventSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "guardian_event_subscribers",
		Help: "Open websocket report streams",
	})
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("guardian.snapshot")

// processedTotal counts Process calls by outcome
// (converted/recovered/duplicate/failed)
var processedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guardian_snapshot_processed_total",
	Help: "Snapshot processing attempts by outcome",
}, []string{"outcome"})

// removedTotal counts snapshots deleted by Cleanup
var removedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "guardian_snapshot_removed_total",
	Help: "Snapshots deleted by cleanup",
})

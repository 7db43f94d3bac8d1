// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics of the declaration pipeline.
//
// Thread Safety: Safe for concurrent use (Prometheus metrics are thread-safe).
type Metrics struct {
	// DeclsAdded counts declarations committed by the checker.
	DeclsAdded prometheus.Counter

	// KernelRejections counts declarations the checker refused.
	KernelRejections prometheus.Counter

	// CompileFailures counts declarations the backend failed to compile
	// after a successful check.
	CompileFailures prometheus.Counter

	// MaxDepthTrips counts recursion-fence failures.
	MaxDepthTrips prometheus.Counter

	// AddCompileDuration measures add-and-compile latency per declaration.
	AddCompileDuration prometheus.Histogram
}

var metrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{
		DeclsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "elab",
			Subsystem: "pipeline",
			Name:      "decls_added_total",
			Help:      "Declarations committed to the environment by the checker.",
		}),
		KernelRejections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "elab",
			Subsystem: "pipeline",
			Name:      "kernel_rejections_total",
			Help:      "Declarations rejected by the checker.",
		}),
		CompileFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "elab",
			Subsystem: "pipeline",
			Name:      "compile_failures_total",
			Help:      "Checked declarations the native backend failed to compile.",
		}),
		MaxDepthTrips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "elab",
			Subsystem: "core",
			Name:      "max_rec_depth_total",
			Help:      "Recursion-fence failures.",
		}),
		AddCompileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "elab",
			Subsystem: "pipeline",
			Name:      "add_compile_duration_seconds",
			Help:      "Latency of add-and-compile per declaration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// PipelineMetrics exposes the pipeline metrics (read-only use: tests and the
// metrics endpoint).
func PipelineMetrics() *Metrics {
	return metrics
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal tracks finished streaming jobs by overall status and format.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_jobs_total",
		Help: "Total streaming jobs by overall status and format",
	}, []string{"status", "format"})

	// JobDuration tracks the end-to-end duration of a streaming job.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "abr_job_duration_seconds",
		Help:    "End-to-end duration of a streaming job",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	}, []string{"format"})

	// JobsActive tracks jobs currently owned by the job manager.
	JobsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "abr_jobs_active",
		Help: "Number of streaming jobs currently running",
	})

	// ManifestBuilds tracks manifest builds by format and result.
	ManifestBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_manifest_builds_total",
		Help: "Total manifest builds by format and result",
	}, []string{"format", "result"})

	// ManifestVariants tracks how many variants ended up in each built manifest.
	ManifestVariants = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "abr_manifest_variants",
		Help:    "Number of variants referenced by a built manifest",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 8},
	}, []string{"format"})
)

// ObserveJob records a finished job.
func ObserveJob(status, format string, d time.Duration) {
	JobsTotal.WithLabelValues(status, format).Inc()
	JobDuration.WithLabelValues(format).Observe(d.Seconds())
}

// ObserveManifestBuild records a manifest build attempt.
func ObserveManifestBuild(format string, variants int, err error) {
	ManifestBuilds.WithLabelValues(format, resultLabel(err == nil)).Inc()
	if err == nil {
		ManifestVariants.WithLabelValues(format).Observe(float64(variants))
	}
}

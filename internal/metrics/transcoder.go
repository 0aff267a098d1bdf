// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EncodeAttempts tracks rendition encodes by preset and result.
	EncodeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_encode_attempts_total",
		Help: "Total rendition encode attempts by preset and result",
	}, []string{"preset", "format", "result"})

	// EncodeDuration tracks wall time of one rendition encode.
	EncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "abr_encode_duration_seconds",
		Help:    "Wall time of a single rendition encode",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
	}, []string{"preset"})

	// EncodeInflight tracks the number of ffmpeg encodes currently running.
	EncodeInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "abr_encode_inflight",
		Help: "Number of rendition encodes currently running",
	})

	// ThumbnailRuns tracks thumbnail generation outcomes.
	ThumbnailRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_thumbnail_runs_total",
		Help: "Total thumbnail generation runs by result",
	}, []string{"result"})

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_proc_terminate_total",
		Help: "Process group termination signals by signal and outcome",
	}, []string{"signal", "outcome"})

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_proc_wait_total",
		Help: "Process exits observed after termination",
	}, []string{"outcome"})
)

// ObserveEncode records one rendition attempt.
func ObserveEncode(preset, format, result string, d time.Duration) {
	EncodeAttempts.WithLabelValues(preset, format, result).Inc()
	EncodeDuration.WithLabelValues(preset).Observe(d.Seconds())
}

// IncThumbnailRun records a thumbnail generation outcome.
func IncThumbnailRun(success bool) {
	ThumbnailRuns.WithLabelValues(resultLabel(success)).Inc()
}

// IncProcTerminate records a termination signal sent to a process group.
func IncProcTerminate(signal, outcome string) {
	procTerminate.WithLabelValues(signal, outcome).Inc()
}

// IncProcWait records how a terminated process exited.
func IncProcWait(outcome string) {
	procWait.WithLabelValues(outcome).Inc()
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PurgeTotal tracks purge outcomes by provider and reason ("ok" on success).
	PurgeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_cdn_purge_total",
		Help: "Total CDN purge requests by provider and outcome",
	}, []string{"provider", "reason"})

	// PurgeFiles tracks the number of files submitted for invalidation.
	PurgeFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_cdn_purge_files_total",
		Help: "Total files submitted for CDN invalidation",
	}, []string{"provider"})

	// URLResolutions tracks URL resolution by provider and whether the local fallback was used.
	URLResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_cdn_url_resolutions_total",
		Help: "Total delivery URL resolutions by provider and source",
	}, []string{"provider", "source"})
)

// ObservePurge records a purge outcome.
func ObservePurge(provider, reason string, files int) {
	if reason == "" {
		reason = "ok"
	}
	PurgeTotal.WithLabelValues(provider, reason).Inc()
	PurgeFiles.WithLabelValues(provider).Add(float64(files))
}

// IncURLResolution records one URL resolution.
func IncURLResolution(provider string, fallback bool) {
	source := "cdn"
	if fallback {
		source = "local"
	}
	URLResolutions.WithLabelValues(provider, source).Inc()
}

var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abr_cdn_breaker_state",
		Help: "Purge circuit breaker state by provider (active state=1, others 0)",
	}, []string{"provider", "state"})

	breakerTrips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abr_cdn_breaker_trips_total",
		Help: "Total purge circuit breaker transitions to open",
	}, []string{"provider", "reason"})
)

var breakerStates = []string{"closed", "half-open", "open"}

// SetBreakerState records the active breaker state for a provider.
func SetBreakerState(provider, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		breakerState.WithLabelValues(provider, s).Set(value)
	}
}

// RecordBreakerTrip counts a transition to open.
func RecordBreakerTrip(provider, reason string) {
	breakerTrips.WithLabelValues(provider, reason).Inc()
}

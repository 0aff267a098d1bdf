// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "abr_http_request_duration_seconds",
	Help:    "HTTP request latency by route pattern, method and status",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "method", "status"})

// HTTPMiddleware observes request latency labelled by chi route pattern.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Observe(time.Since(start).Seconds())
	})
}

var mediaRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "abr_media_requests_total",
	Help: "Local media requests by outcome",
}, []string{"result"})

// IncMediaRequest records a local media request outcome ("served", "not_modified", "not_found", "denied", "error").
func IncMediaRequest(result string) {
	mediaRequests.WithLabelValues(result).Inc()
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes streaming jobs, delivery URLs, purges and local media over HTTP.
package api

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/abrcast/internal/api/middleware"
	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/ManuGH/abrcast/internal/vod"
)

// Config tunes the HTTP surface.
type Config struct {
	Version string
	// DataDir is the media root; job output lives below DataDir/streaming.
	DataDir string
	// DefaultProvider is used when a request names no CDN provider.
	DefaultProvider string
	// CacheMaxAge is advertised on locally served media.
	CacheMaxAge time.Duration
	// RateLimit is requests per minute per client IP; zero disables it.
	RateLimit      int
	TracingService string
}

// Jobs runs streaming jobs.
type Jobs interface {
	Submit(ctx context.Context, job *model.Job) (*vod.Run, bool)
	Get(id string) *vod.Run
	Cancel(id string) error
	Active() int
}

// Results looks up finished jobs.
type Results interface {
	Get(ctx context.Context, id string) (*model.Job, bool)
}

// Delivery resolves and purges public URLs.
type Delivery interface {
	ResolveURL(path, provider string) string
	Purge(ctx context.Context, paths []string, provider string) cdn.Outcome
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Jobs     Jobs
	Results  Results
	Delivery Delivery
	// Ready serves /readyz when set.
	Ready http.Handler
}

// Server owns the router. It holds no mutable state of its own.
type Server struct {
	cfg  Config
	deps Deps
}

// New creates a Server.
func New(cfg Config, deps Deps) *Server {
	if cfg.CacheMaxAge <= 0 {
		cfg.CacheMaxAge = time.Hour
	}
	if real, err := filepath.EvalSymlinks(cfg.DataDir); err == nil {
		cfg.DataDir = real
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler builds the routed handler.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: s.cfg.TracingService,
		EnableLogging:  true,
		RateLimit:      s.cfg.RateLimit,
	})

	r.Get("/healthz", s.handleHealth)
	if s.deps.Ready != nil {
		r.Method(http.MethodGet, "/readyz", s.deps.Ready)
	}
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/streaming/jobs", func(r chi.Router) {
			r.Post("/", s.handleSubmitJob)
			r.Get("/{id}", s.handleGetJob)
			r.Delete("/{id}", s.handleCancelJob)
		})
		r.Get("/cdn/url", s.handleResolveURL)
		r.Post("/cdn/purge", s.handlePurge)
	})

	r.Method(http.MethodGet, "/media/*", http.StripPrefix("/media", s.mediaServer()))
	r.Method(http.MethodHead, "/media/*", http.StripPrefix("/media", s.mediaServer()))
	return r
}

type healthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version,omitempty"`
	ActiveJobs int    `json:"active_jobs"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{
		Status:     "ok",
		Version:    s.cfg.Version,
		ActiveJobs: s.deps.Jobs.Active(),
	})
}

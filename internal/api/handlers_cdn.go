// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

type resolveURLResponse struct {
	Path     string `json:"path"`
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

func (s *Server) handleResolveURL(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := strings.TrimSpace(q.Get("path"))
	if p == "" {
		badRequest(w, r, "cdn/invalid_request", "path is required")
		return
	}
	provider := q.Get("provider")
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	writeJSON(w, r, http.StatusOK, resolveURLResponse{
		Path:     p,
		Provider: provider,
		URL:      s.deps.Delivery.ResolveURL(p, provider),
	})
}

type purgeRequest struct {
	Provider  string   `json:"provider,omitempty"`
	FilePaths []string `json:"file_paths,omitempty"`
	// JobID purges the manifest of a finished job in addition to FilePaths.
	JobID string `json:"job_id,omitempty"`
}

// handlePurge answers 200 on success, 400 for an unsupported provider and
// 502 when the provider rejected or failed the request. The body is always
// the purge outcome.
func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "cdn/invalid_request", err.Error())
		return
	}
	provider := req.Provider
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}

	paths := req.FilePaths
	if req.JobID != "" {
		job, ok := s.deps.Results.Get(r.Context(), req.JobID)
		if !ok {
			notFound(w, r, "streaming/job_not_found", "no finished job with id "+req.JobID)
			return
		}
		paths = append(paths, s.jobMediaPaths(job)...)
	}
	if len(paths) == 0 {
		badRequest(w, r, "cdn/invalid_request", "file_paths or job_id is required")
		return
	}

	out := s.deps.Delivery.Purge(r.Context(), paths, provider)
	status := http.StatusOK
	switch out.Reason {
	case cdn.ReasonUnsupportedProvider:
		status = http.StatusBadRequest
	case cdn.ReasonProviderError:
		status = http.StatusBadGateway
	}
	writeJSON(w, r, status, out)
}

// jobMediaPaths lists the job's manifest and per-variant playlists.
func (s *Server) jobMediaPaths(job *model.Job) []string {
	if job.ManifestPath == "" {
		return nil
	}
	manifest, ok := s.mediaPath(job.ManifestPath)
	if !ok {
		return nil
	}
	out := []string{manifest}
	if job.Format != model.FormatHLS {
		return out
	}
	for _, rend := range job.Succeeded() {
		if rel, ok := s.mediaPath(filepath.Join(job.OutputRoot, model.VariantPlaylistName(rend.PresetName))); ok {
			out = append(out, rel)
		}
	}
	return out
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ManuGH/abrcast/internal/api/problem"
	"github.com/ManuGH/abrcast/internal/fsutil"
	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/ManuGH/abrcast/internal/vod"
)

// streamingDir is the DataDir subdirectory holding job output.
const streamingDir = "streaming"

var validJobID = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

type submitJobRequest struct {
	JobID      string `json:"job_id,omitempty"`
	VideoID    string `json:"video_id,omitempty"`
	SourcePath string `json:"source_path"`
	Format     string `json:"format,omitempty"`
}

type submitJobResponse struct {
	JobID        string          `json:"job_id"`
	Status       model.JobStatus `json:"status"`
	Deduplicated bool            `json:"deduplicated"`
	Location     string          `json:"location"`
}

// jobView is a job snapshot plus the delivery URLs of its manifest.
type jobView struct {
	*model.Job
	Active        bool              `json:"active"`
	StreamingURLs map[string]string `json:"streaming_urls,omitempty"`
}

func jobLocation(id string) string {
	return "/api/v1/streaming/jobs/" + id
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badRequest(w, r, "streaming/invalid_request", err.Error())
		return
	}

	id := req.JobID
	if id == "" {
		id = req.VideoID
	}
	if id == "" {
		id = uuid.New().String()
	}
	if !validJobID.MatchString(id) {
		badRequest(w, r, "streaming/invalid_job_id", "job_id must be 1-128 characters of [A-Za-z0-9._-]")
		return
	}
	format, err := model.ParseFormat(req.Format)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, "streaming/invalid_format", "Invalid format type", err.Error(),
			map[string]any{"format": req.Format})
		return
	}
	if strings.TrimSpace(req.SourcePath) == "" {
		badRequest(w, r, "streaming/invalid_request", "source_path is required")
		return
	}

	outputRoot, err := fsutil.ConfineRelPath(s.cfg.DataDir, path.Join(streamingDir, id))
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(log.FieldJobID, id).Msg("output root rejected")
		problem.Write(w, r, http.StatusForbidden, "streaming/output_root", "Forbidden", "output root escapes data directory", nil)
		return
	}

	job := model.NewJob(id, req.SourcePath, outputRoot, format)
	run, isNew := s.deps.Jobs.Submit(r.Context(), job)
	if run == nil {
		problem.Write(w, r, http.StatusServiceUnavailable, "streaming/unavailable", "Service Unavailable", "job could not be scheduled", nil)
		return
	}

	w.Header().Set("Location", jobLocation(id))
	writeJSON(w, r, http.StatusAccepted, submitJobResponse{
		JobID:        run.ID,
		Status:       model.JobPending,
		Deduplicated: !isNew,
		Location:     jobLocation(id),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		job    *model.Job
		active bool
	)
	if run := s.deps.Jobs.Get(id); run != nil {
		select {
		case <-run.Done:
		default:
			active = true
		}
		job = run.Job()
	}
	if job == nil {
		if stored, ok := s.deps.Results.Get(r.Context(), id); ok {
			job = stored
		}
	}
	if job == nil {
		notFound(w, r, "streaming/job_not_found", "no job with id "+id)
		return
	}

	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = s.cfg.DefaultProvider
	}
	writeJSON(w, r, http.StatusOK, jobView{
		Job:           job,
		Active:        active,
		StreamingURLs: s.streamingURLs(job, provider),
	})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Jobs.Cancel(id); err != nil {
		if errors.Is(err, vod.ErrNotFound) {
			notFound(w, r, "streaming/job_not_active", "no active job with id "+id)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, "streaming/cancel_failed", "Internal Server Error", err.Error(), nil)
		return
	}
	writeJSON(w, r, http.StatusAccepted, map[string]string{"job_id": id, "status": "cancelling"})
}

// streamingURLs resolves the job manifest through provider, keyed by format.
func (s *Server) streamingURLs(job *model.Job, provider string) map[string]string {
	if job.ManifestPath == "" {
		return nil
	}
	rel, ok := s.mediaPath(job.ManifestPath)
	if !ok {
		return nil
	}
	return map[string]string{string(job.Format): s.deps.Delivery.ResolveURL(rel, provider)}
}

// mediaPath converts an absolute path below DataDir into a slash-separated
// path relative to it.
func (s *Server) mediaPath(abs string) (string, bool) {
	rel, err := filepath.Rel(s.cfg.DataDir, abs)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

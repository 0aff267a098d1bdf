// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/abrcast/internal/api/problem"
	"github.com/ManuGH/abrcast/internal/cache"
	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/pipeline/exec"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/ManuGH/abrcast/internal/pipeline/worker"
	"github.com/ManuGH/abrcast/internal/vod"
)

type fakeProvider struct {
	err error

	mu   sync.Mutex
	urls [][]string
}

func (p *fakeProvider) Name() string { return cdn.Cloudflare }

func (p *fakeProvider) BuildPurgeRequest(urls []string) (cdn.PurgeRequest, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.urls = append(p.urls, urls)
	return cdn.PurgeRequest{Provider: cdn.Cloudflare, Targets: urls}, nil
}

func (p *fakeProvider) Submit(context.Context, cdn.PurgeRequest) error { return p.err }

func (p *fakeProvider) last() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.urls) == 0 {
		return nil
	}
	return p.urls[len(p.urls)-1]
}

type harness struct {
	t        *testing.T
	srv      *httptest.Server
	handler  http.Handler
	manager  *vod.Manager
	store    *cache.JobStore
	encoder  *exec.StubEncoder
	provider *fakeProvider
	dataDir  string
	source   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dataDir := t.TempDir()
	source := filepath.Join(t.TempDir(), "upload.mp4")
	require.NoError(t, os.WriteFile(source, []byte("source"), 0o600))

	def := ladder.Default()
	l, err := ladder.New(def.At(0), def.At(1), def.At(2))
	require.NoError(t, err)

	encoder := &exec.StubEncoder{}
	orch := worker.New(l, &exec.StubFactory{Encoder: encoder})

	mem := cache.NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = mem.Close() })
	store := cache.NewJobStore(mem, time.Hour)
	manager := vod.NewManager(orch, store, zerolog.Nop())

	provider := &fakeProvider{}
	gateway := cdn.NewGateway(
		cdn.NewTable(cdn.ProviderConfig{Name: cdn.Cloudflare, BaseURL: "https://cdn.example.com"}),
		[]cdn.Provider{provider},
		cdn.Options{LocalPrefix: "/media/"},
	)

	s := New(Config{
		Version:         "test",
		DataDir:         dataDir,
		DefaultProvider: cdn.Cloudflare,
		CacheMaxAge:     10 * time.Minute,
	}, Deps{Jobs: manager, Results: store, Delivery: gateway})

	h := &harness{
		t:        t,
		handler:  s.Handler(),
		manager:  manager,
		store:    store,
		encoder:  encoder,
		provider: provider,
		dataDir:  dataDir,
		source:   source,
	}
	h.srv = httptest.NewServer(h.handler)
	t.Cleanup(func() {
		h.srv.Close()
		manager.CancelAll()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Wait(ctx)
	})
	return h
}

func (h *harness) do(method, path string, body any) (*http.Response, []byte) {
	h.t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, h.srv.URL+path, rdr)
	require.NoError(h.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return resp, raw
}

// wait blocks until job id is no longer active.
func (h *harness) wait(id string) *model.Job {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if run := h.manager.Get(id); run != nil {
		_, err := run.Wait(ctx)
		require.NoError(h.t, err)
	}
	job, ok := h.store.Get(ctx, id)
	require.True(h.t, ok, "job %s not stored", id)
	return job
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func TestSubmitJob_RunsAndExposesStreamingURLs(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodPost, "/api/v1/streaming/jobs", map[string]string{
		"video_id": "42", "source_path": h.source, "format": "hls",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))
	sub := decode[submitJobResponse](t, raw)
	assert.Equal(t, "42", sub.JobID)
	assert.False(t, sub.Deduplicated)
	assert.Equal(t, "/api/v1/streaming/jobs/42", resp.Header.Get("Location"))

	job := h.wait("42")
	require.Equal(t, model.JobSucceeded, job.OverallStatus, job.Errors)

	resp, raw = h.do(http.MethodGet, "/api/v1/streaming/jobs/42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[map[string]any](t, raw)
	assert.Equal(t, "succeeded", view["overall_status"])
	assert.Equal(t, false, view["active"])
	assert.Equal(t, map[string]any{"hls": "https://cdn.example.com/streaming/42/master.m3u8"}, view["streaming_urls"])

	_, raw = h.do(http.MethodGet, "/api/v1/streaming/jobs/42?provider=unconfigured_provider", nil)
	view = decode[map[string]any](t, raw)
	assert.Equal(t, map[string]any{"hls": "/media/streaming/42/master.m3u8"}, view["streaming_urls"])

	resp, raw = h.do(http.MethodGet, "/media/streaming/42/master.m3u8", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.apple.mpegurl", resp.Header.Get("Content-Type"))
	assert.Equal(t, "public, max-age=600", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.True(t, strings.HasPrefix(string(raw), "#EXTM3U"))
	assert.Contains(t, string(raw), "1080p.m3u8")
}

func TestSubmitJob_DASHManifestServed(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodPost, "/api/v1/streaming/jobs", map[string]string{
		"job_id": "dash-1", "source_path": h.source, "format": "dash",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(raw))
	job := h.wait("dash-1")
	require.Equal(t, model.JobSucceeded, job.OverallStatus)

	resp, raw = h.do(http.MethodGet, "/media/streaming/dash-1/manifest.mpd", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/dash+xml", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(raw), "urn:mpeg:dash:schema:mpd:2011")
}

func TestSubmitJob_GeneratesIDWhenAbsent(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodPost, "/api/v1/streaming/jobs", map[string]string{"source_path": h.source})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	sub := decode[submitJobResponse](t, raw)
	assert.Len(t, sub.JobID, 36)
	h.wait(sub.JobID)
}

func TestSubmitJob_RejectsBadRequests(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name        string
		body        any
		problemType string
	}{
		{"invalid format", map[string]string{"source_path": h.source, "format": "flv"}, "streaming/invalid_format"},
		{"missing source", map[string]string{"job_id": "1"}, "streaming/invalid_request"},
		{"traversal id", map[string]string{"job_id": "../etc", "source_path": h.source}, "streaming/invalid_job_id"},
		{"unknown field", map[string]string{"source_path": h.source, "priority": "high"}, "streaming/invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := h.do(http.MethodPost, "/api/v1/streaming/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, problem.ContentType, resp.Header.Get("Content-Type"))
			assert.Equal(t, tt.problemType, decode[map[string]any](t, raw)["type"])
		})
	}
	assert.Empty(t, h.encoder.Calls(), "rejected requests never reach the pipeline")
}

func TestSubmitJob_DedupesAndCancels(t *testing.T) {
	h := newHarness(t)
	h.encoder.Delay = time.Minute
	body := map[string]string{"job_id": "slow", "source_path": h.source}

	resp, _ := h.do(http.MethodPost, "/api/v1/streaming/jobs", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp, raw := h.do(http.MethodPost, "/api/v1/streaming/jobs", body)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.True(t, decode[submitJobResponse](t, raw).Deduplicated)

	_, raw = h.do(http.MethodGet, "/api/v1/streaming/jobs/slow", nil)
	view := decode[map[string]any](t, raw)
	assert.Equal(t, true, view["active"])
	assert.Equal(t, "pending", view["overall_status"])

	resp, _ = h.do(http.MethodDelete, "/api/v1/streaming/jobs/slow", nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	job := h.wait("slow")
	assert.Equal(t, model.JobCancelled, job.OverallStatus)
	assert.Empty(t, job.ManifestPath)
}

func TestJob_NotFound(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodGet, "/api/v1/streaming/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "streaming/job_not_found", decode[map[string]any](t, raw)["type"])

	resp, _ = h.do(http.MethodDelete, "/api/v1/streaming/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResolveURL(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodGet, "/api/v1/cdn/url?path=videos/42/master.m3u8&provider=unconfigured_provider", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/media/videos/42/master.m3u8", decode[resolveURLResponse](t, raw).URL)

	_, raw = h.do(http.MethodGet, "/api/v1/cdn/url?path=videos/42/master.m3u8", nil)
	got := decode[resolveURLResponse](t, raw)
	assert.Equal(t, cdn.Cloudflare, got.Provider)
	assert.Equal(t, "https://cdn.example.com/videos/42/master.m3u8", got.URL)

	resp, _ = h.do(http.MethodGet, "/api/v1/cdn/url", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPurge(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodPost, "/api/v1/cdn/purge", map[string]any{
		"provider": cdn.Cloudflare, "file_paths": []string{"a.ts", "b.ts", "a.ts"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.True(t, decode[cdn.Outcome](t, raw).Success)
	assert.Equal(t, []string{"https://cdn.example.com/a.ts", "https://cdn.example.com/b.ts"}, h.provider.last())

	resp, raw = h.do(http.MethodPost, "/api/v1/cdn/purge", map[string]any{
		"provider": "akamai", "file_paths": []string{"a.ts"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	out := decode[cdn.Outcome](t, raw)
	assert.False(t, out.Success)
	assert.Equal(t, cdn.ReasonUnsupportedProvider, out.Reason)

	resp, _ = h.do(http.MethodPost, "/api/v1/cdn/purge", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPurge_ProviderErrorIsBadGateway(t *testing.T) {
	h := newHarness(t)
	h.provider.err = &cdn.APIError{Provider: cdn.Cloudflare, Status: http.StatusForbidden, Messages: []string{"bad token"}}

	resp, raw := h.do(http.MethodPost, "/api/v1/cdn/purge", map[string]any{"file_paths": []string{"a.ts"}})

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	out := decode[cdn.Outcome](t, raw)
	assert.Equal(t, cdn.ReasonProviderError, out.Reason)
	assert.Contains(t, out.Detail, "bad token")
}

func TestPurge_ByJobID(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(http.MethodPost, "/api/v1/streaming/jobs", map[string]string{"job_id": "42", "source_path": h.source})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	h.wait("42")

	resp, raw := h.do(http.MethodPost, "/api/v1/cdn/purge", map[string]any{"job_id": "42"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	assert.Equal(t, []string{
		"https://cdn.example.com/streaming/42/master.m3u8",
		"https://cdn.example.com/streaming/42/1080p.m3u8",
		"https://cdn.example.com/streaming/42/720p.m3u8",
		"https://cdn.example.com/streaming/42/480p.m3u8",
	}, h.provider.last())

	resp, _ = h.do(http.MethodPost, "/api/v1/cdn/purge", map[string]any{"job_id": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)

	resp, raw := h.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[healthResponse](t, raw)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "test", health.Version)

	resp, raw = h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "abr_http_request_duration_seconds")
}

func TestReadyz_ServedWhenConfigured(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s := New(Config{DataDir: t.TempDir()}, Deps{
		Jobs: h.manager,
		Ready: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}),
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

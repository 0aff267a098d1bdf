// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeMedia(t *testing.T, root, rel, body string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(body), 0o600))
}

func TestMedia_ServesWithCachingHeaders(t *testing.T) {
	h := newHarness(t)
	writeMedia(t, h.dataDir, "videos/42/720p/segment_001.ts", "segment")

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/videos/42/720p/segment_001.ts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp2t", rec.Header().Get("Content-Type"))
	assert.Equal(t, "segment", rec.Body.String())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/media/videos/42/720p/segment_001.ts", nil)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMedia_HeadHasNoBody(t *testing.T) {
	h := newHarness(t)
	writeMedia(t, h.dataDir, "videos/42/thumbnail.jpg", "jpeg")

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/media/videos/42/thumbnail.jpg", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Body.String())
}

func TestMedia_Rejections(t *testing.T) {
	h := newHarness(t)
	writeMedia(t, h.dataDir, "videos/42/master.m3u8", "#EXTM3U\n")
	outside := t.TempDir()
	writeMedia(t, outside, "secret.txt", "secret")
	require.NoError(t, os.Symlink(outside, filepath.Join(h.dataDir, "escape")))

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"encoded dot-dot", "/media/%2e%2e/etc/passwd", http.StatusForbidden},
		{"double encoded", "/media/videos/%252e%252e/secret", http.StatusForbidden},
		{"directory", "/media/videos/42", http.StatusForbidden},
		{"directory slash", "/media/videos/42/", http.StatusForbidden},
		{"symlink escape", "/media/escape/secret.txt", http.StatusForbidden},
		{"missing", "/media/videos/43/master.m3u8", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "secret")
		})
	}
}

func TestIsPathTraversal(t *testing.T) {
	for _, p := range []string{
		"../x",
		"a/%2e%2e/b",
		"a/%252e%252e/b",
		"a\\b",
		"a/%c0%ae%c0%ae/b",
		"a/‥/b",
		"a/%00",
	} {
		assert.True(t, isPathTraversal(p), p)
	}
	for _, p := range []string{"videos/42/master.m3u8", "streaming/job.1/720p/init_0.mp4", "a/.hidden"} {
		assert.False(t, isPathTraversal(p), p)
	}
}

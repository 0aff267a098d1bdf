// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/abrcast/internal/fsutil"
	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/metrics"
)

var mediaContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".mpd":  "application/dash+xml",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".jpg":  "image/jpeg",
}

// mediaServer serves files below DataDir for the local-serving fallback.
// Paths are confined after symlink resolution; directories are never listed.
func (s *Server) mediaServer() http.Handler {
	cacheControl := "public, max-age=" + strconv.Itoa(int(s.cfg.CacheMaxAge.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "media")
		deny := func(status int, reason string) {
			logger.Warn().Str(log.FieldEvent, "media_req.denied").Str(log.FieldPath, r.URL.Path).Str("reason", reason).Msg("media request denied")
			metrics.IncMediaRequest("denied")
			http.Error(w, http.StatusText(status), status)
		}

		rel := strings.TrimPrefix(r.URL.Path, "/")
		if rel == "" || strings.HasSuffix(rel, "/") {
			deny(http.StatusForbidden, "directory_listing")
			return
		}
		if isPathTraversal(rel) {
			deny(http.StatusForbidden, "path_escape")
			return
		}

		full, err := fsutil.ConfineRelPath(s.cfg.DataDir, rel)
		if err != nil {
			if errors.Is(err, fsutil.ErrOutsideRoot) {
				deny(http.StatusForbidden, "path_escape")
				return
			}
			deny(http.StatusBadRequest, "invalid_path")
			return
		}

		// #nosec G304 -- full is confined to DataDir by ConfineRelPath
		f, err := os.Open(full)
		if err != nil {
			if os.IsNotExist(err) {
				metrics.IncMediaRequest("not_found")
				http.NotFound(w, r)
				return
			}
			logger.Error().Err(err).Str(log.FieldPath, full).Msg("could not open media file")
			metrics.IncMediaRequest("error")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer func() { _ = f.Close() }()

		info, err := f.Stat()
		if err != nil {
			metrics.IncMediaRequest("error")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		if info.IsDir() {
			deny(http.StatusForbidden, "directory_listing")
			return
		}

		etag := fmt.Sprintf(`W/"%x-%x"`, info.ModTime().UnixNano(), info.Size())
		h := w.Header()
		h.Set("ETag", etag)
		h.Set("Cache-Control", cacheControl)
		h.Set("X-Content-Type-Options", "nosniff")
		if ct, ok := mediaContentTypes[strings.ToLower(filepath.Ext(info.Name()))]; ok {
			h.Set("Content-Type", ct)
		}
		if r.Header.Get("If-None-Match") == etag {
			metrics.IncMediaRequest("not_modified")
			w.WriteHeader(http.StatusNotModified)
			return
		}

		metrics.IncMediaRequest("served")
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// isPathTraversal decodes p repeatedly and rejects dot-dot, NUL and overlong
// encodings, before and after Unicode normalization.
func isPathTraversal(p string) bool {
	decoded := p
	for range 3 {
		d, err := url.PathUnescape(decoded)
		if err != nil || d == decoded {
			break
		}
		decoded = d
	}

	for _, candidate := range []string{strings.ToLower(p), strings.ToLower(decoded)} {
		for _, pat := range []string{"..", "\\", "%00", "%c0%ae", "%e0%80%ae"} {
			if strings.Contains(candidate, pat) {
				return true
			}
		}
	}
	if strings.IndexByte(decoded, 0) >= 0 {
		return true
	}
	return strings.Contains(norm.NFKC.String(decoded), "..")
}

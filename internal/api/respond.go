// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ManuGH/abrcast/internal/api/problem"
	"github.com/ManuGH/abrcast/internal/log"
)

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Int("status", status).Msg("failed to encode response")
	}
}

// decodeJSON reads one JSON object into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func badRequest(w http.ResponseWriter, r *http.Request, problemType, detail string) {
	problem.Write(w, r, http.StatusBadRequest, problemType, "Bad Request", detail, nil)
}

func notFound(w http.ResponseWriter, r *http.Request, problemType, detail string) {
	problem.Write(w, r, http.StatusNotFound, problemType, "Not Found", detail, nil)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"fmt"
	"strings"
)

// Format selects the adaptive streaming packaging.
type Format string

const (
	FormatHLS  Format = "hls"
	FormatDASH Format = "dash"
)

// ParseFormat accepts "hls" or "dash" (case-insensitive). Empty defaults to HLS.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatHLS):
		return FormatHLS, nil
	case string(FormatDASH):
		return FormatDASH, nil
	default:
		return "", fmt.Errorf("invalid format type %q (supported: hls, dash)", s)
	}
}

// RenditionStatus is the outcome of one ladder entry.
type RenditionStatus string

const (
	RenditionSucceeded RenditionStatus = "succeeded"
	RenditionFailed    RenditionStatus = "failed"
	RenditionCancelled RenditionStatus = "cancelled"
)

// JobStatus is the overall job lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobPartial   JobStatus = "partial"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal returns true once the job has left pending.
func (s JobStatus) IsTerminal() bool {
	return s != JobPending && s != ""
}

// ErrorKind classifies job-level errors surfaced to callers.
type ErrorKind string

const (
	ErrValidation ErrorKind = "validation_error"
	ErrEncode     ErrorKind = "encode_failure"
	ErrManifest   ErrorKind = "manifest_failure"
	ErrThumbnail  ErrorKind = "thumbnail_failure"
	ErrCancelled  ErrorKind = "cancelled"
)

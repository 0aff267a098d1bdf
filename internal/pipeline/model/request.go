// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "github.com/ManuGH/abrcast/internal/ladder"

// EncodeRequest describes one rendition encode.
type EncodeRequest struct {
	SourcePath     string
	OutputRoot     string
	Preset         ladder.QualityPreset
	Index          int // ladder position; names segments and DASH representations
	Format         Format
	SegmentSeconds int
}

// ThumbnailRequest describes one thumbnail sampling run.
type ThumbnailRequest struct {
	SourcePath      string
	OutputDir       string
	IntervalSeconds int
}

// ThumbnailResult is the outcome of thumbnail generation.
type ThumbnailResult struct {
	Succeeded   bool
	Dir         string
	Count       int
	ErrorDetail string
}

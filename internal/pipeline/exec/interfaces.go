// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package exec defines the execution boundary of the rendition pipeline.
// Implementations block until their external process exits and report every
// failure through the returned result.
package exec

import (
	"context"

	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// Encoder produces one rendition.
type Encoder interface {
	Encode(ctx context.Context, req model.EncodeRequest) model.RenditionResult
}

// Thumbnailer samples preview frames from a source.
type Thumbnailer interface {
	Generate(ctx context.Context, req model.ThumbnailRequest) model.ThumbnailResult
}

// Factory produces execution components.
type Factory interface {
	NewEncoder() Encoder
	NewThumbnailer() Thumbnailer
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ctx context.Context, req model.EncodeRequest) model.RenditionResult

// Encode calls f.
func (f EncoderFunc) Encode(ctx context.Context, req model.EncodeRequest) model.RenditionResult {
	return f(ctx, req)
}

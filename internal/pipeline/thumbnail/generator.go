// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package thumbnail samples fixed-size preview frames for player scrubbing.
package thumbnail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/metrics"
	"github.com/ManuGH/abrcast/internal/pipeline/exec/ffmpeg"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// DefaultInterval is the sampling interval in seconds.
const DefaultInterval = 10

// Generator runs ffmpeg to extract one frame every interval seconds.
type Generator struct {
	BinPath string
	Runner  ffmpeg.Runner
}

// NewGenerator creates a Generator.
func NewGenerator(binPath string, killGrace time.Duration) *Generator {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Generator{BinPath: binPath, Runner: ffmpeg.NewProcessRunner(killGrace)}
}

// Generate replaces req.OutputDir with a fresh set of frames numbered from 1.
func (g *Generator) Generate(ctx context.Context, req model.ThumbnailRequest) (res model.ThumbnailResult) {
	logger := log.WithComponentFromContext(ctx, "thumbnail")
	defer func() {
		metrics.IncThumbnailRun(res.Succeeded)
		if !res.Succeeded {
			logger.Warn().Str("detail", res.ErrorDetail).Msg("thumbnail generation failed")
		}
	}()

	interval := req.IntervalSeconds
	if interval <= 0 {
		interval = DefaultInterval
	}
	args, err := ffmpeg.BuildThumbnailArgs(ffmpeg.InputSpec{SourcePath: req.SourcePath}, req.OutputDir, interval)
	if err != nil {
		return model.ThumbnailResult{ErrorDetail: err.Error()}
	}
	if err := os.RemoveAll(req.OutputDir); err != nil {
		return model.ThumbnailResult{ErrorDetail: fmt.Sprintf("clear thumbnail dir: %v", err)}
	}
	// #nosec G301 -- served media directory
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return model.ThumbnailResult{ErrorDetail: fmt.Sprintf("create thumbnail dir: %v", err)}
	}

	status, err := g.Runner.Run(ctx, g.BinPath, args)
	if err != nil {
		detail := err.Error()
		if len(status.Stderr) > 0 {
			detail += ": " + strings.Join(status.Stderr, "\n")
		}
		return model.ThumbnailResult{ErrorDetail: detail}
	}

	count, err := countFrames(req.OutputDir)
	if err != nil {
		return model.ThumbnailResult{ErrorDetail: err.Error()}
	}
	if count == 0 {
		return model.ThumbnailResult{ErrorDetail: "no frames produced"}
	}
	logger.Info().Int("frames", count).Str(log.FieldPath, req.OutputDir).Msg("thumbnails generated")
	return model.ThumbnailResult{Succeeded: true, Dir: req.OutputDir, Count: count}
}

func countFrames(dir string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "thumb_*.jpg"))
	if err != nil {
		return 0, err
	}
	return len(matches), nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ManuGH/abrcast/internal/fsutil"
	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/metrics"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// Encoder produces renditions with an ffmpeg binary.
type Encoder struct {
	BinPath string
	Runner  Runner
}

// NewEncoder creates an Encoder that supervises ffmpeg with the given kill grace.
func NewEncoder(binPath string, killGrace time.Duration) *Encoder {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Encoder{BinPath: binPath, Runner: NewProcessRunner(killGrace)}
}

// Encode writes one rendition below req.OutputRoot/{preset}. It never returns
// an error: every failure is reported through the result status and detail.
func (e *Encoder) Encode(ctx context.Context, req model.EncodeRequest) model.RenditionResult {
	res := model.RenditionResult{
		PresetName: req.Preset.Name,
		Index:      req.Index,
		StartedAt:  time.Now(),
	}
	logger := log.WithComponentFromContext(ctx, "encoder").With().
		Str(log.FieldPreset, req.Preset.Name).
		Str(log.FieldFormat, string(req.Format)).
		Logger()

	metrics.EncodeInflight.Inc()
	defer func() {
		metrics.EncodeInflight.Dec()
		res.EndedAt = time.Now()
		metrics.ObserveEncode(req.Preset.Name, string(req.Format), string(res.Status), res.EndedAt.Sub(res.StartedAt))
	}()

	fail := func(format string, args ...any) model.RenditionResult {
		res.Status = model.RenditionFailed
		res.ErrorDetail = fmt.Sprintf(format, args...)
		res.SegmentDir = ""
		logger.Warn().Str("detail", res.ErrorDetail).Msg("rendition failed")
		return res
	}

	if err := fsutil.IsRegularFile(req.SourcePath); err != nil {
		return fail("source %s: %v", req.SourcePath, err)
	}

	dir := model.RenditionDir(req.OutputRoot, req.Preset.Name)
	// Stale segments from a previous run must not leak into this one.
	if err := os.RemoveAll(dir); err != nil {
		return fail("clear rendition dir: %v", err)
	}
	// #nosec G301 -- served media directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fail("create rendition dir: %v", err)
	}
	res.SegmentDir = dir

	out := OutputSpec{Dir: dir, Index: req.Index, Format: req.Format, SegmentDuration: req.SegmentSeconds}
	args, err := BuildRenditionArgs(InputSpec{SourcePath: req.SourcePath}, out, req.Preset)
	if err != nil {
		return fail("build args: %v", err)
	}

	logger.Info().
		Str(log.FieldResolution, req.Preset.Resolution()).
		Int("video_kbps", req.Preset.VideoBitrate).
		Int("audio_kbps", req.Preset.AudioBitrate).
		Msg("encoding rendition")

	status, runErr := e.Runner.Run(ctx, e.BinPath, args)
	if ctx.Err() != nil {
		_ = os.RemoveAll(dir)
		res.Status = model.RenditionCancelled
		res.SegmentDir = ""
		res.ErrorDetail = "cancelled"
		logger.Info().Msg("rendition cancelled")
		return res
	}
	if runErr != nil {
		return fail("%s", exitDetail(status, runErr))
	}

	list, err := ParseSegmentsFile(out.ScratchPlaylistPath())
	if err != nil {
		return fail("read segment list: %v", err)
	}
	_ = os.Remove(out.ScratchPlaylistPath())

	if len(list.Segments) == 0 {
		return fail("encoder produced no segments")
	}
	for _, s := range list.Segments {
		if _, err := os.Stat(filepath.Join(dir, s.URI)); err != nil {
			return fail("missing segment %s", s.URI)
		}
	}
	if req.Format == model.FormatDASH {
		initName := list.InitSegment
		if initName == "" {
			initName = model.InitSegmentName(req.Index)
		}
		if _, err := os.Stat(filepath.Join(dir, initName)); err != nil {
			return fail("missing init segment %s", initName)
		}
		res.InitSegment = initName
	}

	res.Status = model.RenditionSucceeded
	res.Segments = list.Segments
	logger.Info().
		Int(log.FieldSegments, len(res.Segments)).
		Float64("duration_s", res.Duration()).
		Msg("rendition complete")
	return res
}

func exitDetail(status ExitStatus, err error) string {
	var b strings.Builder
	if status.Code >= 0 {
		fmt.Fprintf(&b, "ffmpeg exited with code %d", status.Code)
	} else {
		b.WriteString(err.Error())
	}
	if len(status.Stderr) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(status.Stderr, "\n"))
	}
	return b.String()
}

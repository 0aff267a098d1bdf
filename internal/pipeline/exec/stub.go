// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package exec

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// StubEncoder writes placeholder segments without running ffmpeg. It backs
// dry-run mode and pipeline tests.
type StubEncoder struct {
	// Durations of the segments written per rendition; defaults to 6, 6, 3.5.
	Durations []float64
	// Fail maps preset names to the error detail they report.
	Fail map[string]string
	// Delay blocks each encode until it elapses or ctx is done.
	Delay time.Duration

	mu    sync.Mutex
	calls []string
}

var defaultStubDurations = []float64{6, 6, 3.5}

// Encode implements Encoder.
func (s *StubEncoder) Encode(ctx context.Context, req model.EncodeRequest) model.RenditionResult {
	s.mu.Lock()
	s.calls = append(s.calls, req.Preset.Name)
	s.mu.Unlock()

	res := model.RenditionResult{PresetName: req.Preset.Name, Index: req.Index, StartedAt: time.Now()}
	defer func() { res.EndedAt = time.Now() }()

	dir := model.RenditionDir(req.OutputRoot, req.Preset.Name)
	if err := os.RemoveAll(dir); err != nil {
		return stubFailed(res, err.Error())
	}

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
		case <-t.C:
		}
	}
	if ctx.Err() != nil {
		res.Status = model.RenditionCancelled
		res.ErrorDetail = "cancelled"
		return res
	}
	if detail, ok := s.Fail[req.Preset.Name]; ok {
		return stubFailed(res, detail)
	}

	// #nosec G301 -- served media directory
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stubFailed(res, err.Error())
	}
	durations := s.Durations
	if len(durations) == 0 {
		durations = defaultStubDurations
	}
	if req.Format == model.FormatDASH {
		res.InitSegment = model.InitSegmentName(req.Index)
		if err := writeStubFile(filepath.Join(dir, res.InitSegment)); err != nil {
			return stubFailed(res, err.Error())
		}
	}
	first := model.FirstSegmentNumber(req.Format)
	for i, d := range durations {
		name := model.SegmentName(req.Format, req.Index, first+i)
		if err := writeStubFile(filepath.Join(dir, name)); err != nil {
			return stubFailed(res, err.Error())
		}
		res.Segments = append(res.Segments, model.Segment{URI: name, Duration: d})
	}
	res.Status = model.RenditionSucceeded
	res.SegmentDir = dir
	return res
}

// Calls returns the preset names encoded so far, in call order.
func (s *StubEncoder) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func stubFailed(res model.RenditionResult, detail string) model.RenditionResult {
	res.Status = model.RenditionFailed
	res.ErrorDetail = detail
	return res
}

func writeStubFile(path string) error {
	return os.WriteFile(path, []byte(filepath.Base(path)), 0o600)
}

// StubThumbnailer writes Count placeholder frames, or fails when Err is set.
type StubThumbnailer struct {
	Count int
	Err   string
}

// Generate implements Thumbnailer.
func (s *StubThumbnailer) Generate(ctx context.Context, req model.ThumbnailRequest) model.ThumbnailResult {
	if ctx.Err() != nil {
		return model.ThumbnailResult{ErrorDetail: ctx.Err().Error()}
	}
	if s.Err != "" {
		return model.ThumbnailResult{ErrorDetail: s.Err}
	}
	if err := os.RemoveAll(req.OutputDir); err != nil {
		return model.ThumbnailResult{ErrorDetail: err.Error()}
	}
	// #nosec G301 -- served media directory
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return model.ThumbnailResult{ErrorDetail: err.Error()}
	}
	count := s.Count
	if count <= 0 {
		count = 1
	}
	for n := 1; n <= count; n++ {
		if err := writeStubFile(filepath.Join(req.OutputDir, model.ThumbnailName(n))); err != nil {
			return model.ThumbnailResult{ErrorDetail: fmt.Sprintf("write frame %d: %v", n, err)}
		}
	}
	return model.ThumbnailResult{Succeeded: true, Dir: req.OutputDir, Count: count}
}

// StubFactory produces stub components.
type StubFactory struct {
	Encoder     *StubEncoder
	Thumbnailer *StubThumbnailer
}

func (f *StubFactory) NewEncoder() Encoder {
	if f.Encoder == nil {
		f.Encoder = &StubEncoder{}
	}
	return f.Encoder
}

func (f *StubFactory) NewThumbnailer() Thumbnailer {
	if f.Thumbnailer == nil {
		f.Thumbnailer = &StubThumbnailer{}
	}
	return f.Thumbnailer
}

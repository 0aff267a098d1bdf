// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package exec

import (
	"time"

	"github.com/ManuGH/abrcast/internal/pipeline/exec/ffmpeg"
	"github.com/ManuGH/abrcast/internal/pipeline/thumbnail"
)

// RealFactory produces ffmpeg-backed components.
type RealFactory struct {
	FFmpegBin   string
	KillTimeout time.Duration
}

// NewRealFactory creates a RealFactory.
func NewRealFactory(ffmpegBin string, killTimeout time.Duration) *RealFactory {
	return &RealFactory{FFmpegBin: ffmpegBin, KillTimeout: killTimeout}
}

func (f *RealFactory) NewEncoder() Encoder {
	return ffmpeg.NewEncoder(f.FFmpegBin, f.KillTimeout)
}

func (f *RealFactory) NewThumbnailer() Thumbnailer {
	return thumbnail.NewGenerator(f.FFmpegBin, f.KillTimeout)
}

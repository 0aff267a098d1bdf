// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// InputSpec defines the source media.
type InputSpec struct {
	SourcePath string
}

// OutputSpec defines where one rendition is written.
type OutputSpec struct {
	Dir             string // rendition directory; receives segments and the scratch playlist
	Index           int    // ladder position
	Format          model.Format
	SegmentDuration int // seconds
}

// ScratchPlaylistPath is the media playlist ffmpeg writes alongside the
// segments. It is parsed for segment durations and then removed.
func (o OutputSpec) ScratchPlaylistPath() string {
	return filepath.Join(o.Dir, model.ScratchPlaylist)
}

// BuildRenditionArgs constructs the ffmpeg arguments for one VOD rendition.
// Both formats drive the hls muxer; DASH switches it to fMP4 segments that the
// MPD references through a number template.
func BuildRenditionArgs(in InputSpec, out OutputSpec, p ladder.QualityPreset) ([]string, error) {
	if in.SourcePath == "" {
		return nil, errors.New("missing source path")
	}
	if out.Dir == "" {
		return nil, errors.New("missing output directory")
	}
	if p.Width <= 0 || p.Height <= 0 || p.VideoBitrate <= 0 || p.AudioBitrate <= 0 {
		return nil, fmt.Errorf("invalid preset %q", p.Name)
	}
	seg := out.SegmentDuration
	if seg <= 0 {
		seg = 6
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-y",
		"-i", in.SourcePath,

		"-map", "0:v:0",
		"-map", "0:a:0?",

		"-vf", fmt.Sprintf("scale=w=%d:h=%d", p.Width, p.Height),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "main",
		"-level:v", p.H264Level(),
		"-pix_fmt", "yuv420p",
		"-b:v", kbps(p.VideoBitrate),
		"-maxrate", kbps(p.VideoBitrate),
		"-bufsize", kbps(p.BufferSize()),
		// Segment boundaries must line up across renditions.
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", seg),
		"-sc_threshold", "0",

		"-c:a", "aac",
		"-b:a", kbps(p.AudioBitrate),
		"-ac", "2",

		"-f", "hls",
		"-hls_time", strconv.Itoa(seg),
		"-hls_playlist_type", "vod",
		"-hls_list_size", "0",
		"-hls_flags", "independent_segments",
		"-start_number", strconv.Itoa(model.FirstSegmentNumber(out.Format)),
	}

	if out.Format == model.FormatDASH {
		args = append(args,
			"-hls_segment_type", "fmp4",
			"-hls_fmp4_init_filename", model.InitSegmentName(out.Index),
		)
	}

	args = append(args,
		"-hls_segment_filename", filepath.Join(out.Dir, model.SegmentPattern(out.Format, out.Index)),
		out.ScratchPlaylistPath(),
	)
	return args, nil
}

// ThumbnailSize is the fixed preview frame size.
const (
	ThumbnailWidth  = 160
	ThumbnailHeight = 90
)

// BuildThumbnailArgs samples one frame every interval seconds into dir.
func BuildThumbnailArgs(in InputSpec, dir string, interval int) ([]string, error) {
	if in.SourcePath == "" {
		return nil, errors.New("missing source path")
	}
	if dir == "" {
		return nil, errors.New("missing output directory")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("invalid thumbnail interval %d", interval)
	}
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-y",
		"-i", in.SourcePath,
		"-vf", fmt.Sprintf("fps=1/%d,scale=%d:%d", interval, ThumbnailWidth, ThumbnailHeight),
		"-q:v", "5",
		filepath.Join(dir, model.ThumbnailPattern),
	}, nil
}

func kbps(v int) string {
	return strconv.Itoa(v) + "k"
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"fmt"
	"path/filepath"
)

// On-disk layout shared by encoders, manifest builders and the delivery layer.
const (
	MasterPlaylistName = "master.m3u8"
	DASHManifestName   = "manifest.mpd"
	ThumbnailDirName   = "thumbnails"
	ScratchPlaylist    = ".index.m3u8"

	ThumbnailPattern = "thumb_%04d.jpg"
)

// VariantPlaylistName is the HLS variant playlist for a preset, relative to the output root.
func VariantPlaylistName(preset string) string {
	return preset + ".m3u8"
}

// RenditionDir is the directory holding a preset's segments.
func RenditionDir(outputRoot, preset string) string {
	return filepath.Join(outputRoot, preset)
}

// SegmentPattern is the ffmpeg output pattern for media segments of ladder entry idx.
// HLS numbers from 000, DASH from 00001 to match $Number%05d$ with startNumber=1.
func SegmentPattern(format Format, idx int) string {
	if format == FormatDASH {
		return fmt.Sprintf("chunk_%d_%%05d.m4s", idx)
	}
	return fmt.Sprintf("segment_%d_%%03d.ts", idx)
}

// SegmentName renders the media segment file name for sequence number seq.
func SegmentName(format Format, idx, seq int) string {
	return fmt.Sprintf(SegmentPattern(format, idx), seq)
}

// FirstSegmentNumber is the sequence number of the first media segment.
func FirstSegmentNumber(format Format) int {
	if format == FormatDASH {
		return 1
	}
	return 0
}

// InitSegmentName is the DASH initialization segment for ladder entry idx.
func InitSegmentName(idx int) string {
	return fmt.Sprintf("init_%d.m4s", idx)
}

// ThumbnailName renders the file name of thumbnail n (1-based).
func ThumbnailName(n int) string {
	return fmt.Sprintf(ThumbnailPattern, n)
}

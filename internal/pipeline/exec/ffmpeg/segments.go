// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ffmpeg

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/grafov/m3u8"
)

// ErrNotMediaPlaylist is returned when the scratch playlist is a master playlist.
var ErrNotMediaPlaylist = errors.New("not a media playlist")

// SegmentList is the parsed content of a rendition's scratch playlist.
type SegmentList struct {
	Segments    []model.Segment
	InitSegment string
}

// ParseSegments reads a media playlist written by the hls muxer. Segment URIs
// are reduced to their base names so they stay relative to the rendition dir.
func ParseSegments(r io.Reader) (SegmentList, error) {
	pl, kind, err := m3u8.DecodeFrom(r, false)
	if err != nil {
		return SegmentList{}, fmt.Errorf("decode playlist: %w", err)
	}
	if kind != m3u8.MEDIA {
		return SegmentList{}, ErrNotMediaPlaylist
	}
	media := pl.(*m3u8.MediaPlaylist)

	var out SegmentList
	if media.Map != nil {
		out.InitSegment = path.Base(media.Map.URI)
	}
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		if out.InitSegment == "" && seg.Map != nil {
			out.InitSegment = path.Base(seg.Map.URI)
		}
		out.Segments = append(out.Segments, model.Segment{
			URI:      path.Base(seg.URI),
			Duration: seg.Duration,
		})
	}
	return out, nil
}

// ParseSegmentsFile opens and parses a scratch playlist.
func ParseSegmentsFile(p string) (SegmentList, error) {
	f, err := os.Open(p) // #nosec G304 -- path is built from the job output root
	if err != nil {
		return SegmentList{}, err
	}
	defer func() { _ = f.Close() }()
	return ParseSegments(f)
}

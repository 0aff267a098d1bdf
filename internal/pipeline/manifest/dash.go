// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manifest

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/zencoder/go-dash/v3/mpd"
)

const (
	mpdTimescale   = 1000
	initTemplate   = "init_$RepresentationID$.m4s"
	mediaTemplate  = "chunk_$RepresentationID$_$Number%05d$.m4s"
	minBufferTime  = "PT2.000S"
	defaultSegment = 6
)

// BuildDASH writes a static MPD with one Representation per variant sharing a
// number-addressed SegmentTemplate. Segments carry muxed audio and video, so
// a single video AdaptationSet lists every variant. It returns the MPD path.
func BuildDASH(root string, variants []Variant, segmentSeconds int) (string, error) {
	if err := validate(variants); err != nil {
		return "", err
	}
	if segmentSeconds <= 0 {
		segmentSeconds = defaultSegment
	}
	variants = ordered(variants)

	var longest float64
	for _, v := range variants {
		if d := v.Duration(); d > longest {
			longest = d
		}
	}

	doc := mpd.NewMPD(mpd.DASH_PROFILE_LIVE, isoDuration(longest), minBufferTime)
	as, err := doc.AddNewAdaptationSetVideo(mpd.DASH_MIME_TYPE_VIDEO_MP4, "progressive", true, 1)
	if err != nil {
		return "", fmt.Errorf("dash adaptation set: %w", err)
	}
	if _, err := as.SetNewSegmentTemplate(
		int64(segmentSeconds*mpdTimescale),
		initTemplate,
		mediaTemplate,
		int64(model.FirstSegmentNumber(model.FormatDASH)),
		mpdTimescale,
	); err != nil {
		return "", fmt.Errorf("dash segment template: %w", err)
	}

	for _, v := range variants {
		rep, err := as.AddNewRepresentationVideo(
			int64(v.Preset.Bandwidth()),
			v.Preset.Codecs(),
			strconv.Itoa(v.Index),
			"",
			int64(v.Preset.Width),
			int64(v.Preset.Height),
		)
		if err != nil {
			return "", fmt.Errorf("variant %s: %w", v.Preset.Name, err)
		}
		// Frame rate follows the source.
		rep.FrameRate = nil
		if err := rep.SetNewBaseURL(v.Preset.Name + "/"); err != nil {
			return "", fmt.Errorf("variant %s: %w", v.Preset.Name, err)
		}
	}

	body, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("encode mpd: %w", err)
	}

	mpdPath := filepath.Join(root, model.DASHManifestName)
	if err := writeAtomic(mpdPath, func(w io.Writer) error {
		_, err := io.WriteString(w, body)
		return err
	}); err != nil {
		return "", err
	}
	return mpdPath, nil
}

// isoDuration renders seconds as an ISO-8601 duration with millisecond precision.
func isoDuration(seconds float64) string {
	return fmt.Sprintf("PT%.3fS", seconds)
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manifest

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/grafov/m3u8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func preset(t *testing.T, name string) ladder.QualityPreset {
	t.Helper()
	p, err := ladder.Default().Lookup(name)
	require.NoError(t, err)
	return p
}

func hlsVariants(t *testing.T) []Variant {
	// Deliberately out of ladder order.
	return []Variant{
		{Preset: preset(t, "480p"), Index: 2, Segments: []model.Segment{
			{URI: "segment_2_000.ts", Duration: 6}, {URI: "segment_2_001.ts", Duration: 4.5},
		}},
		{Preset: preset(t, "1080p"), Index: 0, Segments: []model.Segment{
			{URI: "segment_0_000.ts", Duration: 6}, {URI: "segment_0_001.ts", Duration: 4.5},
		}},
	}
}

func TestBuildHLS(t *testing.T) {
	root := t.TempDir()

	masterPath, err := BuildHLS(root, hlsVariants(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "master.m3u8"), masterPath)

	f, err := os.Open(masterPath)
	require.NoError(t, err)
	defer f.Close()
	pl, kind, err := m3u8.DecodeFrom(f, true)
	require.NoError(t, err)
	require.Equal(t, m3u8.MASTER, kind)

	master := pl.(*m3u8.MasterPlaylist)
	require.Len(t, master.Variants, 2)
	assert.Equal(t, "1080p.m3u8", master.Variants[0].URI)
	assert.Equal(t, uint32(5192000), master.Variants[0].Bandwidth)
	assert.Equal(t, "1920x1080", master.Variants[0].Resolution)
	assert.Equal(t, "avc1.4d4028,mp4a.40.2", master.Variants[0].Codecs)
	assert.Equal(t, "480p.m3u8", master.Variants[1].URI)
	assert.Equal(t, uint32(1528000), master.Variants[1].Bandwidth)
	assert.Equal(t, "854x480", master.Variants[1].Resolution)

	variant, err := os.ReadFile(filepath.Join(root, "480p.m3u8"))
	require.NoError(t, err)
	assert.Contains(t, string(variant), "#EXT-X-PLAYLIST-TYPE:VOD")
	assert.Contains(t, string(variant), "#EXT-X-TARGETDURATION:6")
	assert.Contains(t, string(variant), "480p/segment_2_000.ts\n")
	assert.Contains(t, string(variant), "#EXT-X-ENDLIST")
	assert.Less(t, strings.Index(string(variant), "segment_2_000.ts"), strings.Index(string(variant), "segment_2_001.ts"))
}

func TestBuildHLS_Deterministic(t *testing.T) {
	root := t.TempDir()

	_, err := BuildHLS(root, hlsVariants(t))
	require.NoError(t, err)
	first := readAll(t, root, "master.m3u8", "1080p.m3u8", "480p.m3u8")

	_, err = BuildHLS(root, hlsVariants(t))
	require.NoError(t, err)
	assert.Equal(t, first, readAll(t, root, "master.m3u8", "1080p.m3u8", "480p.m3u8"))
}

func TestBuildHLS_Empty(t *testing.T) {
	root := t.TempDir()
	_, err := BuildHLS(root, nil)
	assert.ErrorIs(t, err, ErrNoRenditions)
	assert.NoFileExists(t, filepath.Join(root, "master.m3u8"))

	_, err = BuildHLS(root, []Variant{{Preset: preset(t, "720p"), Index: 1}})
	assert.ErrorIs(t, err, ErrEmptyVariant)
}

func dashVariants(t *testing.T) []Variant {
	return []Variant{
		{Preset: preset(t, "720p"), Index: 1, InitSegment: "init_1.m4s", Segments: []model.Segment{
			{URI: "chunk_1_00001.m4s", Duration: 6}, {URI: "chunk_1_00002.m4s", Duration: 6}, {URI: "chunk_1_00003.m4s", Duration: 2.25},
		}},
		{Preset: preset(t, "360p"), Index: 3, InitSegment: "init_3.m4s", Segments: []model.Segment{
			{URI: "chunk_3_00001.m4s", Duration: 6}, {URI: "chunk_3_00002.m4s", Duration: 6},
		}},
	}
}

// mpdDoc is the subset of the MPD schema the assertions read.
type mpdDoc struct {
	XMLName                   xml.Name `xml:"MPD"`
	Type                      string   `xml:"type,attr"`
	Profiles                  string   `xml:"profiles,attr"`
	MediaPresentationDuration string   `xml:"mediaPresentationDuration,attr"`
	Periods                   []struct {
		AdaptationSets []struct {
			MimeType        string `xml:"mimeType,attr"`
			SegmentTemplate struct {
				Timescale      int    `xml:"timescale,attr"`
				Duration       int    `xml:"duration,attr"`
				StartNumber    int    `xml:"startNumber,attr"`
				Initialization string `xml:"initialization,attr"`
				Media          string `xml:"media,attr"`
			} `xml:"SegmentTemplate"`
			Representations []mpdRepresentation `xml:"Representation"`
		} `xml:"AdaptationSet"`
	} `xml:"Period"`
}

type mpdRepresentation struct {
	ID        string `xml:"id,attr"`
	Bandwidth int    `xml:"bandwidth,attr"`
	Codecs    string `xml:"codecs,attr"`
	Width     int    `xml:"width,attr"`
	Height    int    `xml:"height,attr"`
	BaseURL   string `xml:"BaseURL"`
}

func TestBuildDASH(t *testing.T) {
	root := t.TempDir()

	mpdPath, err := BuildDASH(root, dashVariants(t), 6)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "manifest.mpd"), mpdPath)

	data, err := os.ReadFile(mpdPath)
	require.NoError(t, err)

	var doc mpdDoc
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, "static", doc.Type)
	assert.Equal(t, "urn:mpeg:dash:profile:isoff-live:2011", doc.Profiles)
	assert.Equal(t, "PT14.250S", doc.MediaPresentationDuration)

	require.Len(t, doc.Periods, 1)
	require.Len(t, doc.Periods[0].AdaptationSets, 1)
	as := doc.Periods[0].AdaptationSets[0]
	assert.Equal(t, "video/mp4", as.MimeType)
	assert.Equal(t, 1000, as.SegmentTemplate.Timescale)
	assert.Equal(t, 6000, as.SegmentTemplate.Duration)
	assert.Equal(t, 1, as.SegmentTemplate.StartNumber)
	assert.Equal(t, "init_$RepresentationID$.m4s", as.SegmentTemplate.Initialization)
	assert.Equal(t, "chunk_$RepresentationID$_$Number%05d$.m4s", as.SegmentTemplate.Media)
	assert.Equal(t, []mpdRepresentation{
		{ID: "1", Bandwidth: 2928000, Codecs: "avc1.4d401f,mp4a.40.2", Width: 1280, Height: 720, BaseURL: "720p/"},
		{ID: "3", Bandwidth: 896000, Codecs: "avc1.4d401e,mp4a.40.2", Width: 640, Height: 360, BaseURL: "360p/"},
	}, as.Representations)
}

func TestBuildDASH_Deterministic(t *testing.T) {
	root := t.TempDir()
	_, err := BuildDASH(root, dashVariants(t), 6)
	require.NoError(t, err)
	first := readAll(t, root, "manifest.mpd")

	_, err = BuildDASH(root, dashVariants(t), 6)
	require.NoError(t, err)
	assert.Equal(t, first, readAll(t, root, "manifest.mpd"))
}

func TestBuildDASH_Empty(t *testing.T) {
	_, err := BuildDASH(t.TempDir(), []Variant{}, 6)
	assert.ErrorIs(t, err, ErrNoRenditions)
}

func TestVariantsFor(t *testing.T) {
	l := ladder.Default()
	renditions := []model.RenditionResult{
		{PresetName: "1080p", Index: 0, Status: model.RenditionSucceeded, Segments: []model.Segment{{URI: "a", Duration: 6}}},
		{PresetName: "720p", Index: 1, Status: model.RenditionFailed},
		{PresetName: "480p", Index: 2, Status: model.RenditionSucceeded, Segments: []model.Segment{{URI: "b", Duration: 6}}},
		{PresetName: "unknown", Index: 9, Status: model.RenditionSucceeded},
	}

	got := VariantsFor(l, renditions)
	require.Len(t, got, 2)
	assert.Equal(t, "1080p", got[0].Preset.Name)
	assert.Equal(t, "480p", got[1].Preset.Name)
}

func TestRemoveStale(t *testing.T) {
	root := t.TempDir()
	// 1440p is not in the current ladder: left over from an earlier configuration.
	for _, n := range []string{"master.m3u8", "manifest.mpd", "720p.m3u8", "1440p.m3u8", "keep.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, n), []byte("x"), 0o600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "720p"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "720p", "segment_1_000.ts"), []byte("x"), 0o600))

	require.NoError(t, RemoveStale(root))
	assert.NoFileExists(t, filepath.Join(root, "master.m3u8"))
	assert.NoFileExists(t, filepath.Join(root, "manifest.mpd"))
	assert.NoFileExists(t, filepath.Join(root, "720p.m3u8"))
	assert.NoFileExists(t, filepath.Join(root, "1440p.m3u8"))
	assert.FileExists(t, filepath.Join(root, "keep.txt"))
	assert.FileExists(t, filepath.Join(root, "720p", "segment_1_000.ts"))

	require.NoError(t, RemoveStale(root), "missing files are not an error")
	require.NoError(t, RemoveStale(filepath.Join(root, "absent")))
}

func readAll(t *testing.T, root string, names ...string) map[string]string {
	t.Helper()
	out := make(map[string]string, len(names))
	for _, n := range names {
		b, err := os.ReadFile(filepath.Join(root, n))
		require.NoError(t, err)
		out[n] = string(b)
	}
	return out
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ladder holds the ordered table of target renditions attempted for every job.
package ladder

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyLadder     = errors.New("ladder has no presets")
	ErrUnknownPreset   = errors.New("unknown preset")
	ErrDuplicatePreset = errors.New("duplicate preset name")
)

// Preset names become directory and playlist names under the job output root.
var presetNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// reservedNames collide with the thumbnail directory or the HLS master playlist.
var reservedNames = map[string]struct{}{
	"thumbnails": {},
	"master":     {},
}

// QualityPreset is one target rendition. Bitrates are in kbit/s.
type QualityPreset struct {
	Name         string `yaml:"name" json:"name"`
	Width        int    `yaml:"width" json:"width"`
	Height       int    `yaml:"height" json:"height"`
	VideoBitrate int    `yaml:"video_bitrate" json:"video_bitrate"`
	AudioBitrate int    `yaml:"audio_bitrate" json:"audio_bitrate"`
}

// Bandwidth returns the peak bit rate of the rendition in bits per second,
// as advertised in manifests.
func (p QualityPreset) Bandwidth() int {
	return (p.VideoBitrate + p.AudioBitrate) * 1000
}

// Resolution renders the preset dimensions as "WxH".
func (p QualityPreset) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// BufferSize is the rate-control buffer ceiling in kbit/s.
func (p QualityPreset) BufferSize() int {
	return p.VideoBitrate * 2
}

// h264Levels maps H.264 levels to their frame size limit in macroblocks.
var h264Levels = []struct {
	level      string
	idc        int
	maxFrameMB int
}{
	{"3.0", 30, 1620},
	{"3.1", 31, 3600},
	{"4.0", 40, 8192},
	{"5.1", 51, 36864},
}

func (p QualityPreset) levelIndex() int {
	mbs := ((p.Width + 15) / 16) * ((p.Height + 15) / 16)
	for i, l := range h264Levels {
		if mbs <= l.maxFrameMB {
			return i
		}
	}
	return len(h264Levels) - 1
}

// H264Level is the encoder level for the preset's frame size.
func (p QualityPreset) H264Level() string {
	return h264Levels[p.levelIndex()].level
}

// Codecs is the RFC 6381 codecs string for H.264 Main video with AAC-LC audio.
func (p QualityPreset) Codecs() string {
	return fmt.Sprintf("avc1.4d40%02x,mp4a.40.2", h264Levels[p.levelIndex()].idc)
}

func (p QualityPreset) validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return errors.New("preset name is empty")
	case name != p.Name || !presetNamePattern.MatchString(name):
		return fmt.Errorf("preset %q: name must be a plain file-safe token", p.Name)
	case isReserved(name):
		return fmt.Errorf("preset %q: name is reserved", p.Name)
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("preset %q: dimensions must be positive", p.Name)
	case p.Width%2 != 0 || p.Height%2 != 0:
		return fmt.Errorf("preset %q: dimensions must be even for yuv420p", p.Name)
	case p.VideoBitrate <= 0 || p.AudioBitrate <= 0:
		return fmt.Errorf("preset %q: bitrates must be positive", p.Name)
	}
	return nil
}

func isReserved(name string) bool {
	_, ok := reservedNames[strings.ToLower(name)]
	return ok
}

// Ladder is an immutable ordered set of presets. The zero value is empty.
type Ladder struct {
	presets []QualityPreset
}

// New validates presets and returns a ladder preserving their order.
func New(presets ...QualityPreset) (Ladder, error) {
	if len(presets) == 0 {
		return Ladder{}, ErrEmptyLadder
	}
	seen := make(map[string]struct{}, len(presets))
	for _, p := range presets {
		if err := p.validate(); err != nil {
			return Ladder{}, err
		}
		if _, dup := seen[p.Name]; dup {
			return Ladder{}, fmt.Errorf("%w: %s", ErrDuplicatePreset, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	out := make([]QualityPreset, len(presets))
	copy(out, presets)
	return Ladder{presets: out}, nil
}

// MustNew is New for static tables; it panics on invalid input.
func MustNew(presets ...QualityPreset) Ladder {
	l, err := New(presets...)
	if err != nil {
		panic(err)
	}
	return l
}

var defaultPresets = []QualityPreset{
	{Name: "1080p", Width: 1920, Height: 1080, VideoBitrate: 5000, AudioBitrate: 192},
	{Name: "720p", Width: 1280, Height: 720, VideoBitrate: 2800, AudioBitrate: 128},
	{Name: "480p", Width: 854, Height: 480, VideoBitrate: 1400, AudioBitrate: 128},
	{Name: "360p", Width: 640, Height: 360, VideoBitrate: 800, AudioBitrate: 96},
	{Name: "240p", Width: 426, Height: 240, VideoBitrate: 400, AudioBitrate: 64},
}

// Default returns the standard five-step ladder (1080p down to 240p).
func Default() Ladder {
	return MustNew(defaultPresets...)
}

// Presets returns a copy of the presets in ladder order.
func (l Ladder) Presets() []QualityPreset {
	out := make([]QualityPreset, len(l.presets))
	copy(out, l.presets)
	return out
}

// Len returns the number of presets.
func (l Ladder) Len() int { return len(l.presets) }

// At returns the preset at ladder position i.
func (l Ladder) At(i int) QualityPreset { return l.presets[i] }

// Index returns the ladder position of the named preset, or -1.
func (l Ladder) Index(name string) int {
	for i, p := range l.presets {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Lookup returns the named preset.
func (l Ladder) Lookup(name string) (QualityPreset, error) {
	if i := l.Index(name); i >= 0 {
		return l.presets[i], nil
	}
	return QualityPreset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
}

// Names returns the preset names in ladder order.
func (l Ladder) Names() []string {
	names := make([]string, len(l.presets))
	for i, p := range l.presets {
		names[i] = p.Name
	}
	return names
}

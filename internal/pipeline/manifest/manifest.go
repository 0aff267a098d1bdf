// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manifest writes the HLS and DASH manifests that tie a job's
// renditions together. Output is a pure function of the input variants.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/google/renameio/v2"
)

var (
	// ErrNoRenditions is returned when there is nothing to list.
	ErrNoRenditions = errors.New("no renditions to include in manifest")
	// ErrEmptyVariant is returned for a variant without segments.
	ErrEmptyVariant = errors.New("variant has no segments")
)

// Variant is one succeeded rendition as listed in a manifest.
type Variant struct {
	Preset      ladder.QualityPreset
	Index       int
	Segments    []model.Segment
	InitSegment string
}

// Duration returns the total duration of the variant.
func (v Variant) Duration() float64 {
	var total float64
	for _, s := range v.Segments {
		total += s.Duration
	}
	return total
}

// VariantsFor pairs the succeeded renditions with their presets, in ladder order.
func VariantsFor(l ladder.Ladder, renditions []model.RenditionResult) []Variant {
	out := make([]Variant, 0, len(renditions))
	for _, r := range renditions {
		if !r.Succeeded() {
			continue
		}
		p, err := l.Lookup(r.PresetName)
		if err != nil {
			continue
		}
		out = append(out, Variant{Preset: p, Index: r.Index, Segments: r.Segments, InitSegment: r.InitSegment})
	}
	return ordered(out)
}

func ordered(variants []Variant) []Variant {
	out := append([]Variant(nil), variants...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

func validate(variants []Variant) error {
	if len(variants) == 0 {
		return ErrNoRenditions
	}
	for _, v := range variants {
		if len(v.Segments) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyVariant, v.Preset.Name)
		}
	}
	return nil
}

// RemoveStale deletes manifests left by a previous run so a rerun in which
// every rendition fails does not keep serving old output. Every playlist in
// root goes, including variants of presets no longer in the ladder.
func RemoveStale(root string) error {
	playlists, err := filepath.Glob(filepath.Join(root, "*.m3u8"))
	if err != nil {
		return err
	}
	names := append(playlists, filepath.Join(root, model.DASHManifestName))
	var errs []error
	for _, n := range names {
		if err := os.Remove(n); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// writeAtomic replaces path with the output of write using a durable rename.
func writeAtomic(path string, write func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = pending.Cleanup() }()

	if err := write(pending); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

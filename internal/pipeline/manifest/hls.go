// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manifest

import (
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/grafov/m3u8"
)

// BuildHLS writes one VOD playlist per variant and a master playlist listing
// them in ladder order. It returns the master playlist path.
func BuildHLS(root string, variants []Variant) (string, error) {
	if err := validate(variants); err != nil {
		return "", err
	}
	variants = ordered(variants)

	master := m3u8.NewMasterPlaylist()
	for _, v := range variants {
		media, err := mediaPlaylist(v)
		if err != nil {
			return "", err
		}
		name := model.VariantPlaylistName(v.Preset.Name)
		if err := writeAtomic(filepath.Join(root, name), func(w io.Writer) error {
			_, err := media.Encode().WriteTo(w)
			return err
		}); err != nil {
			return "", err
		}
		master.Append(name, nil, m3u8.VariantParams{
			Bandwidth:  uint32(v.Preset.Bandwidth()), // #nosec G115 -- validated kbit/s rates
			Resolution: v.Preset.Resolution(),
			Codecs:     v.Preset.Codecs(),
		})
	}

	masterPath := filepath.Join(root, model.MasterPlaylistName)
	if err := writeAtomic(masterPath, func(w io.Writer) error {
		_, err := master.Encode().WriteTo(w)
		return err
	}); err != nil {
		return "", err
	}
	return masterPath, nil
}

// mediaPlaylist lists the variant's segments relative to the output root.
func mediaPlaylist(v Variant) (*m3u8.MediaPlaylist, error) {
	media, err := m3u8.NewMediaPlaylist(0, uint(len(v.Segments)))
	if err != nil {
		return nil, fmt.Errorf("variant %s: %w", v.Preset.Name, err)
	}
	media.MediaType = m3u8.VOD
	for _, s := range v.Segments {
		if err := media.Append(path.Join(v.Preset.Name, s.URI), s.Duration, ""); err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.Preset.Name, err)
		}
	}
	media.Close()
	return media, nil
}

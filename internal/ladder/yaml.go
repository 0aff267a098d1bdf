// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ladder

import (
	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a ladder from a YAML sequence of presets and validates it.
func (l *Ladder) UnmarshalYAML(node *yaml.Node) error {
	var presets []QualityPreset
	if err := node.Decode(&presets); err != nil {
		return err
	}
	parsed, err := New(presets...)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// MarshalYAML encodes the ladder as a YAML sequence of presets.
func (l Ladder) MarshalYAML() (any, error) {
	return l.Presets(), nil
}

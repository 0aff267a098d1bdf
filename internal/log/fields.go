// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media fields
	FieldPreset     = "preset"
	FieldFormat     = "format"
	FieldResolution = "resolution"
	FieldSegments   = "segments"

	// State fields
	FieldStatus = "status"

	// Path / URL fields
	FieldPath         = "path"
	FieldSourcePath   = "source_path"
	FieldOutputRoot   = "output_root"
	FieldManifestPath = "manifest_path"

	// Delivery fields
	FieldProvider = "provider"
)

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Job attributes
	JobIDKey         = "job.id"
	JobFormatKey     = "job.format"
	JobStatusKey     = "job.status"
	JobRenditionsKey = "job.renditions"
	JobSucceededKey  = "job.renditions_succeeded"
	JobDurationKey   = "job.duration_ms"

	// Rendition attributes
	RenditionPresetKey     = "rendition.preset"
	RenditionIndexKey      = "rendition.index"
	RenditionResolutionKey = "rendition.resolution"
	RenditionBitrateKey    = "rendition.video_kbps"
	RenditionStatusKey     = "rendition.status"
	RenditionSegmentsKey   = "rendition.segments"

	// CDN attributes
	CDNProviderKey = "cdn.provider"
	CDNFilesKey    = "cdn.files"
	CDNReasonKey   = "cdn.reason"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// JobAttributes creates job-related span attributes.
func JobAttributes(id, format string, renditions int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobIDKey, id),
		attribute.String(JobFormatKey, format),
		attribute.Int(JobRenditionsKey, renditions),
	}
}

// JobResultAttributes describes a finished job.
func JobResultAttributes(status string, succeeded int, durationMS int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(JobStatusKey, status),
		attribute.Int(JobSucceededKey, succeeded),
		attribute.Int64(JobDurationKey, durationMS),
	}
}

// RenditionAttributes creates rendition span attributes.
func RenditionAttributes(preset string, index int, resolution string, videoKbps int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(RenditionPresetKey, preset),
		attribute.Int(RenditionIndexKey, index),
		attribute.String(RenditionResolutionKey, resolution),
		attribute.Int(RenditionBitrateKey, videoKbps),
	}
}

// PurgeAttributes creates CDN purge span attributes. Reason is omitted on success.
func PurgeAttributes(provider string, files int, reason string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(CDNProviderKey, provider),
		attribute.Int(CDNFilesKey, files),
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(CDNReasonKey, reason))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

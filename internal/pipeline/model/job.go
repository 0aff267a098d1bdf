// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "time"

// Segment is one time-sliced media file of a rendition, relative to the rendition directory.
type Segment struct {
	URI      string  `json:"uri"`
	Duration float64 `json:"duration"`
}

// RenditionResult is the outcome of encoding one ladder entry.
type RenditionResult struct {
	PresetName  string          `json:"preset"`
	Index       int             `json:"index"`
	Status      RenditionStatus `json:"status"`
	SegmentDir  string          `json:"segment_dir,omitempty"`
	InitSegment string          `json:"init_segment,omitempty"`
	Segments    []Segment       `json:"-"`
	ErrorDetail string          `json:"error_detail,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	EndedAt     time.Time       `json:"ended_at"`
}

// Succeeded reports whether the rendition is usable in a manifest.
func (r RenditionResult) Succeeded() bool {
	return r.Status == RenditionSucceeded
}

// Duration returns the total media duration of the rendition.
func (r RenditionResult) Duration() float64 {
	var total float64
	for _, s := range r.Segments {
		total += s.Duration
	}
	return total
}

// JobError is a structured job-level error entry.
type JobError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

// Job is one run of the rendition pipeline. It is owned by the orchestrator
// while pending and immutable once terminal.
type Job struct {
	ID            string            `json:"job_id"`
	SourcePath    string            `json:"source_path"`
	OutputRoot    string            `json:"output_root"`
	Format        Format            `json:"format"`
	Renditions    []RenditionResult `json:"renditions"`
	ManifestPath  string            `json:"manifest_path,omitempty"`
	ThumbnailDir  string            `json:"thumbnail_dir,omitempty"`
	OverallStatus JobStatus         `json:"overall_status"`
	Warnings      []string          `json:"warnings,omitempty"`
	Errors        []JobError        `json:"errors,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	FinishedAt    time.Time         `json:"finished_at,omitzero"`
}

// NewJob creates a pending job.
func NewJob(id, sourcePath, outputRoot string, format Format) *Job {
	return &Job{
		ID:            id,
		SourcePath:    sourcePath,
		OutputRoot:    outputRoot,
		Format:        format,
		OverallStatus: JobPending,
		CreatedAt:     time.Now(),
	}
}

// Succeeded returns the succeeded renditions in ladder order.
func (j *Job) Succeeded() []RenditionResult {
	out := make([]RenditionResult, 0, len(j.Renditions))
	for _, r := range j.Renditions {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}

// AvailablePresets lists the preset names that made it into the job output.
func (j *Job) AvailablePresets() []string {
	var names []string
	for _, r := range j.Renditions {
		if r.Succeeded() {
			names = append(names, r.PresetName)
		}
	}
	return names
}

// AddError records a job-level error.
func (j *Job) AddError(kind ErrorKind, detail string) {
	j.Errors = append(j.Errors, JobError{Kind: kind, Detail: detail})
}

// Clone returns a deep copy safe to hand to other goroutines.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Renditions = make([]RenditionResult, len(j.Renditions))
	for i, r := range j.Renditions {
		r.Segments = append([]Segment(nil), r.Segments...)
		c.Renditions[i] = r
	}
	c.Warnings = append([]string(nil), j.Warnings...)
	c.Errors = append([]JobError(nil), j.Errors...)
	return &c
}

// StatusFor derives the overall status from rendition outcomes:
// all succeeded -> succeeded, some -> partial, none -> failed.
func StatusFor(renditions []RenditionResult) JobStatus {
	if len(renditions) == 0 {
		return JobFailed
	}
	ok := 0
	for _, r := range renditions {
		if r.Succeeded() {
			ok++
		}
	}
	switch {
	case ok == len(renditions):
		return JobSucceeded
	case ok == 0:
		return JobFailed
	default:
		return JobPartial
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	ok := RenditionResult{Status: RenditionSucceeded}
	bad := RenditionResult{Status: RenditionFailed}

	tests := []struct {
		name string
		in   []RenditionResult
		want JobStatus
	}{
		{name: "empty", in: nil, want: JobFailed},
		{name: "all succeeded", in: []RenditionResult{ok, ok}, want: JobSucceeded},
		{name: "mixed", in: []RenditionResult{ok, bad, ok}, want: JobPartial},
		{name: "all failed", in: []RenditionResult{bad, bad}, want: JobFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.in))
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatHLS, f)

	f, err = ParseFormat("DASH")
	require.NoError(t, err)
	assert.Equal(t, FormatDASH, f)

	_, err = ParseFormat("smooth")
	assert.Error(t, err)
}

func TestJob_CloneIsDeep(t *testing.T) {
	j := NewJob("j1", "/src.mp4", "/out", FormatHLS)
	j.Renditions = []RenditionResult{{PresetName: "720p", Status: RenditionSucceeded, Segments: []Segment{{URI: "a.ts", Duration: 6}}}}
	j.Warnings = []string{"w"}

	c := j.Clone()
	c.Renditions[0].Segments[0].URI = "mutated"
	c.Warnings[0] = "mutated"

	assert.Equal(t, "a.ts", j.Renditions[0].Segments[0].URI)
	assert.Equal(t, "w", j.Warnings[0])
	assert.Equal(t, []string{"720p"}, j.AvailablePresets())
	assert.False(t, JobPending.IsTerminal())
	assert.True(t, JobCancelled.IsTerminal())
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package exec

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubEncoder_WritesLayout(t *testing.T) {
	root := t.TempDir()
	enc := &StubEncoder{}
	p, err := ladder.Default().Lookup("720p")
	require.NoError(t, err)

	res := enc.Encode(context.Background(), model.EncodeRequest{OutputRoot: root, Preset: p, Index: 1, Format: model.FormatDASH})
	require.True(t, res.Succeeded())
	assert.Equal(t, "init_1.m4s", res.InitSegment)
	require.Len(t, res.Segments, 3)
	assert.Equal(t, "chunk_1_00001.m4s", res.Segments[0].URI)
	assert.FileExists(t, filepath.Join(root, "720p", "chunk_1_00003.m4s"))
	assert.Equal(t, []string{"720p"}, enc.Calls())
}

func TestStubEncoder_Fail(t *testing.T) {
	root := t.TempDir()
	enc := &StubEncoder{Fail: map[string]string{"720p": "boom"}}
	p, err := ladder.Default().Lookup("720p")
	require.NoError(t, err)

	res := enc.Encode(context.Background(), model.EncodeRequest{OutputRoot: root, Preset: p, Index: 1})
	assert.Equal(t, model.RenditionFailed, res.Status)
	assert.Equal(t, "boom", res.ErrorDetail)
	assert.NoDirExists(t, filepath.Join(root, "720p"))
}

func TestStubThumbnailer(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "thumbnails")
	res := (&StubThumbnailer{Count: 2}).Generate(context.Background(), model.ThumbnailRequest{OutputDir: dir})
	require.True(t, res.Succeeded)
	assert.Equal(t, 2, res.Count)
	assert.FileExists(t, filepath.Join(dir, "thumb_0002.jpg"))

	res = (&StubThumbnailer{Err: "no video stream"}).Generate(context.Background(), model.ThumbnailRequest{OutputDir: dir})
	assert.False(t, res.Succeeded)
	assert.Equal(t, "no video stream", res.ErrorDetail)
}

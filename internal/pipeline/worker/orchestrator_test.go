// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/grafov/m3u8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/pipeline/exec"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

type fixture struct {
	root   string
	source string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	src := filepath.Join(dir, "upload.mp4")
	require.NoError(t, os.WriteFile(src, []byte("source"), 0o600))
	return fixture{root: filepath.Join(dir, "out"), source: src}
}

func (f fixture) job(format model.Format) *model.Job {
	return model.NewJob("42", f.source, f.root, format)
}

func threeRung(t *testing.T) ladder.Ladder {
	t.Helper()
	def := ladder.Default()
	l, err := ladder.New(def.At(0), def.At(1), def.At(2)) // 1080p, 720p, 480p
	require.NoError(t, err)
	return l
}

func presetNames(rs []model.RenditionResult) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.PresetName)
	}
	return out
}

func masterURIs(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	pl, kind, err := m3u8.DecodeFrom(f, true)
	require.NoError(t, err)
	require.Equal(t, m3u8.MASTER, kind)

	var uris []string
	for _, v := range pl.(*m3u8.MasterPlaylist).Variants {
		uris = append(uris, v.URI)
	}
	return uris
}

func TestRun_AllSucceed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t)
	o := &Orchestrator{
		Ladder:      ladder.Default(),
		Encoder:     &exec.StubEncoder{},
		Thumbnails:  &exec.StubThumbnailer{Count: 3},
		Parallelism: 3,
	}

	job := o.Run(context.Background(), f.job(model.FormatHLS))

	assert.Equal(t, model.JobSucceeded, job.OverallStatus)
	assert.Empty(t, job.Errors)
	assert.Empty(t, job.Warnings)
	if diff := cmp.Diff(ladder.Default().Names(), presetNames(job.Renditions)); diff != "" {
		t.Errorf("rendition order mismatch (-want +got):\n%s", diff)
	}
	for i, r := range job.Renditions {
		assert.Equal(t, i, r.Index)
		assert.True(t, r.Succeeded())
	}

	require.Equal(t, filepath.Join(f.root, "master.m3u8"), job.ManifestPath)
	want := []string{"1080p.m3u8", "720p.m3u8", "480p.m3u8", "360p.m3u8", "240p.m3u8"}
	if diff := cmp.Diff(want, masterURIs(t, job.ManifestPath)); diff != "" {
		t.Errorf("master variants mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, filepath.Join(f.root, "thumbnails"), job.ThumbnailDir)
	assert.FileExists(t, filepath.Join(f.root, "thumbnails", "thumb_0001.jpg"))
	assert.False(t, job.FinishedAt.IsZero())
}

func TestRun_PartialLadder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t)
	o := &Orchestrator{
		Ladder:     threeRung(t),
		Encoder:    &exec.StubEncoder{Fail: map[string]string{"720p": "Conversion failed!"}},
		Thumbnails: &exec.StubThumbnailer{},
	}

	job := o.Run(context.Background(), f.job(model.FormatHLS))

	assert.Equal(t, model.JobPartial, job.OverallStatus)
	require.Len(t, job.Renditions, 3)
	assert.Equal(t, model.RenditionSucceeded, job.Renditions[0].Status)
	assert.Equal(t, model.RenditionFailed, job.Renditions[1].Status)
	assert.Equal(t, "Conversion failed!", job.Renditions[1].ErrorDetail)
	assert.Equal(t, model.RenditionSucceeded, job.Renditions[2].Status)
	assert.Equal(t, []string{"1080p", "480p"}, job.AvailablePresets())

	assert.Equal(t, []string{"1080p.m3u8", "480p.m3u8"}, masterURIs(t, job.ManifestPath))
	assert.NoFileExists(t, filepath.Join(f.root, "720p.m3u8"))
	assert.FileExists(t, filepath.Join(f.root, "480p", "segment_2_000.ts"), "variant index follows ladder position")

	require.Len(t, job.Errors, 1)
	assert.Equal(t, model.ErrEncode, job.Errors[0].Kind)
	assert.Contains(t, job.Errors[0].Detail, "720p")
}

func TestRun_AllFailWritesNoManifest(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t)
	l := threeRung(t)

	// A previous successful run leaves manifests behind.
	ok := &Orchestrator{Ladder: l, Encoder: &exec.StubEncoder{}}
	require.Equal(t, model.JobSucceeded, ok.Run(context.Background(), f.job(model.FormatHLS)).OverallStatus)
	require.FileExists(t, filepath.Join(f.root, "master.m3u8"))

	fail := map[string]string{"1080p": "x", "720p": "y", "480p": "z"}
	o := &Orchestrator{Ladder: l, Encoder: &exec.StubEncoder{Fail: fail}, Thumbnails: &exec.StubThumbnailer{}}
	job := o.Run(context.Background(), f.job(model.FormatHLS))

	assert.Equal(t, model.JobFailed, job.OverallStatus)
	assert.Empty(t, job.ManifestPath)
	assert.NoFileExists(t, filepath.Join(f.root, "master.m3u8"))
	assert.NoFileExists(t, filepath.Join(f.root, "1080p.m3u8"))
	assert.Len(t, job.Errors, 3)
	assert.Equal(t, filepath.Join(f.root, "thumbnails"), job.ThumbnailDir, "thumbnails run regardless of encode outcome")
}

func TestRun_Idempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	for _, format := range []model.Format{model.FormatHLS, model.FormatDASH} {
		t.Run(string(format), func(t *testing.T) {
			f := newFixture(t)
			o := &Orchestrator{Ladder: ladder.Default(), Encoder: &exec.StubEncoder{}, Parallelism: 4}

			first := o.Run(context.Background(), f.job(format))
			require.Equal(t, model.JobSucceeded, first.OverallStatus)
			before, err := os.ReadFile(first.ManifestPath)
			require.NoError(t, err)

			second := o.Run(context.Background(), f.job(format))
			require.Equal(t, first.ManifestPath, second.ManifestPath)
			after, err := os.ReadFile(second.ManifestPath)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after))
		})
	}
}

func TestRun_DASH(t *testing.T) {
	f := newFixture(t)
	o := &Orchestrator{Ladder: threeRung(t), Encoder: &exec.StubEncoder{}, SegmentSeconds: 6}

	job := o.Run(context.Background(), f.job(model.FormatDASH))

	require.Equal(t, model.JobSucceeded, job.OverallStatus)
	assert.Equal(t, filepath.Join(f.root, "manifest.mpd"), job.ManifestPath)
	assert.NoFileExists(t, filepath.Join(f.root, "master.m3u8"))
	assert.Equal(t, "init_1.m4s", job.Renditions[1].InitSegment)
}

func TestRun_NormalizesFormat(t *testing.T) {
	f := newFixture(t)
	o := &Orchestrator{Ladder: threeRung(t), Encoder: &exec.StubEncoder{}, SegmentSeconds: 6}

	job := o.Run(context.Background(), f.job(model.Format("DASH")))

	require.Equal(t, model.JobSucceeded, job.OverallStatus)
	assert.Equal(t, model.FormatDASH, job.Format)
	assert.Equal(t, filepath.Join(f.root, "manifest.mpd"), job.ManifestPath)
	assert.NoFileExists(t, filepath.Join(f.root, "master.m3u8"))

	job = o.Run(context.Background(), f.job(""))
	require.Equal(t, model.JobSucceeded, job.OverallStatus)
	assert.Equal(t, model.FormatHLS, job.Format)
	assert.Equal(t, filepath.Join(f.root, "master.m3u8"), job.ManifestPath)
}

func TestRun_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	o := &Orchestrator{Ladder: ladder.Default(), Encoder: &exec.StubEncoder{}}

	tests := []struct {
		name string
		job  *model.Job
	}{
		{name: "missing source", job: model.NewJob("1", filepath.Join(f.root, "nope.mp4"), f.root, model.FormatHLS)},
		{name: "bad format", job: model.NewJob("2", f.source, f.root, model.Format("smooth"))},
		{name: "no output root", job: model.NewJob("3", f.source, "", model.FormatHLS)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := o.Run(context.Background(), tt.job)
			assert.Equal(t, model.JobFailed, job.OverallStatus)
			assert.Empty(t, job.Renditions)
			require.Len(t, job.Errors, 1)
			assert.Equal(t, model.ErrValidation, job.Errors[0].Kind)
		})
	}
}

func TestRun_ThumbnailFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	o := &Orchestrator{
		Ladder:     threeRung(t),
		Encoder:    &exec.StubEncoder{},
		Thumbnails: &exec.StubThumbnailer{Err: "no video stream"},
	}

	job := o.Run(context.Background(), f.job(model.FormatHLS))

	assert.Equal(t, model.JobSucceeded, job.OverallStatus)
	assert.Empty(t, job.ThumbnailDir)
	assert.Equal(t, []string{"thumbnail_failure: no video stream"}, job.Warnings)
}

func TestRun_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	f := newFixture(t)
	o := &Orchestrator{
		Ladder:      ladder.Default(),
		Encoder:     &exec.StubEncoder{Delay: time.Minute},
		Parallelism: 2,
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	job := o.Run(ctx, f.job(model.FormatHLS))

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, model.JobCancelled, job.OverallStatus)
	assert.Empty(t, job.ManifestPath)
	assert.NoFileExists(t, filepath.Join(f.root, "master.m3u8"))
	require.Len(t, job.Renditions, 5)
	for _, r := range job.Renditions {
		assert.Equal(t, model.RenditionCancelled, r.Status, r.PresetName)
	}
}

func TestRun_EncoderPanicBecomesFailure(t *testing.T) {
	f := newFixture(t)
	stub := &exec.StubEncoder{}
	enc := exec.EncoderFunc(func(ctx context.Context, req model.EncodeRequest) model.RenditionResult {
		if req.Preset.Name == "720p" {
			panic("nil pointer in encoder")
		}
		return stub.Encode(ctx, req)
	})
	o := &Orchestrator{Ladder: threeRung(t), Encoder: enc}

	job := o.Run(context.Background(), f.job(model.FormatHLS))

	assert.Equal(t, model.JobPartial, job.OverallStatus)
	assert.Equal(t, model.RenditionFailed, job.Renditions[1].Status)
	assert.Contains(t, job.Renditions[1].ErrorDetail, "encoder panic")
}

func TestRun_BoundedParallelism(t *testing.T) {
	f := newFixture(t)
	stub := &exec.StubEncoder{}
	var inflight, peak atomic.Int32
	enc := exec.EncoderFunc(func(ctx context.Context, req model.EncodeRequest) model.RenditionResult {
		n := inflight.Add(1)
		defer inflight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return stub.Encode(ctx, req)
	})
	o := &Orchestrator{Ladder: ladder.Default(), Encoder: enc, Parallelism: 2}

	job := o.Run(context.Background(), f.job(model.FormatHLS))

	assert.Equal(t, model.JobSucceeded, job.OverallStatus)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.ElementsMatch(t, ladder.Default().Names(), stub.Calls())
}

func TestRun_Spans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newFixture(t)
	o := &Orchestrator{Ladder: threeRung(t), Encoder: &exec.StubEncoder{}, Tracer: tp.Tracer("test")}
	o.Run(context.Background(), f.job(model.FormatHLS))

	counts := map[string]int{}
	for _, s := range exporter.GetSpans() {
		counts[s.Name]++
	}
	assert.Equal(t, map[string]int{"pipeline.job": 1, "pipeline.rendition": 3}, counts)
}

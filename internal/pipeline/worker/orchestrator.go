// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/abrcast/internal/fsutil"
	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/metrics"
	"github.com/ManuGH/abrcast/internal/pipeline/exec"
	"github.com/ManuGH/abrcast/internal/pipeline/manifest"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
	"github.com/ManuGH/abrcast/internal/telemetry"
)

const (
	defaultParallelism    = 2
	defaultSegmentSeconds = 6
)

// Orchestrator runs one job through the ladder: every preset is attempted,
// the manifest lists whatever succeeded, and thumbnails are generated
// alongside. It holds no per-job state and may run jobs concurrently.
type Orchestrator struct {
	Ladder            ladder.Ladder
	Encoder           exec.Encoder
	Thumbnails        exec.Thumbnailer // optional
	Parallelism       int
	SegmentSeconds    int
	ThumbnailInterval int
	Tracer            trace.Tracer
}

// New creates an Orchestrator from a factory.
func New(l ladder.Ladder, f exec.Factory) *Orchestrator {
	return &Orchestrator{
		Ladder:     l,
		Encoder:    f.NewEncoder(),
		Thumbnails: f.NewThumbnailer(),
	}
}

// Run executes job and returns it in a terminal state. Cancelling ctx stops
// in-flight encodes; completed renditions are kept but no manifest is built.
func (o *Orchestrator) Run(ctx context.Context, job *model.Job) *model.Job {
	start := time.Now()
	ctx = log.ContextWithJobID(ctx, job.ID)
	logger := log.WithComponentFromContext(ctx, "orchestrator")

	tracer := o.Tracer
	if tracer == nil {
		tracer = telemetry.Tracer(telemetry.PipelineTracer)
	}
	ctx, span := tracer.Start(ctx, "pipeline.job",
		trace.WithAttributes(telemetry.JobAttributes(job.ID, string(job.Format), o.Ladder.Len())...))
	defer span.End()

	defer func() {
		job.FinishedAt = time.Now()
		metrics.ObserveJob(string(job.OverallStatus), string(job.Format), job.FinishedAt.Sub(start))
		span.SetAttributes(telemetry.JobResultAttributes(string(job.OverallStatus), len(job.Succeeded()), job.FinishedAt.Sub(start).Milliseconds())...)
		if job.OverallStatus == model.JobFailed {
			span.SetStatus(codes.Error, "job failed")
		}
		logger.Info().
			Str(log.FieldStatus, string(job.OverallStatus)).
			Strs("available", job.AvailablePresets()).
			Dur("elapsed", job.FinishedAt.Sub(start)).
			Msg("job finished")
	}()

	logger.Info().
		Str(log.FieldSourcePath, job.SourcePath).
		Str(log.FieldOutputRoot, job.OutputRoot).
		Str(log.FieldFormat, string(job.Format)).
		Msg("job started")

	if err := o.validate(job); err != nil {
		job.Renditions = nil
		job.AddError(model.ErrValidation, err.Error())
		job.OverallStatus = model.JobFailed
		span.SetAttributes(telemetry.ErrorAttributes(err, string(model.ErrValidation))...)
		logger.Warn().Err(err).Msg("job rejected")
		return job
	}
	if err := manifest.RemoveStale(job.OutputRoot); err != nil {
		logger.Warn().Err(err).Msg("failed to remove stale manifests")
	}
	job.ManifestPath = ""
	job.ThumbnailDir = ""

	thumbs := o.startThumbnails(ctx, job)

	job.Renditions = o.encodeAll(ctx, job, tracer)
	for _, r := range job.Renditions {
		if r.Status == model.RenditionFailed {
			job.AddError(model.ErrEncode, fmt.Sprintf("%s: %s", r.PresetName, r.ErrorDetail))
		}
	}

	switch {
	case ctx.Err() != nil:
		job.OverallStatus = model.JobCancelled
		job.AddError(model.ErrCancelled, "job cancelled before completion")
	default:
		job.OverallStatus = model.StatusFor(job.Renditions)
		if job.OverallStatus != model.JobFailed {
			o.buildManifest(ctx, job)
		}
	}

	if res, ok := <-thumbs; ok {
		if res.Succeeded {
			job.ThumbnailDir = res.Dir
		} else {
			job.Warnings = append(job.Warnings, fmt.Sprintf("%s: %s", model.ErrThumbnail, res.ErrorDetail))
		}
	}
	return job
}

func (o *Orchestrator) validate(job *model.Job) error {
	if o.Ladder.Len() == 0 {
		return ladder.ErrEmptyLadder
	}
	if o.Encoder == nil {
		return fmt.Errorf("no encoder configured")
	}
	format, err := model.ParseFormat(string(job.Format))
	if err != nil {
		return err
	}
	job.Format = format
	if err := fsutil.IsRegularFile(job.SourcePath); err != nil {
		return fmt.Errorf("source video not found: %w", err)
	}
	if job.OutputRoot == "" {
		return fmt.Errorf("output root is required")
	}
	if err := fsutil.EnsureWritableDir(job.OutputRoot); err != nil {
		return fmt.Errorf("output root not writable: %w", err)
	}
	return nil
}

// encodeAll fans the ladder out on a bounded pool. Workers never return an
// error so one failure cannot cancel its siblings; Wait is the join barrier.
func (o *Orchestrator) encodeAll(ctx context.Context, job *model.Job, tracer trace.Tracer) []model.RenditionResult {
	presets := o.Ladder.Presets()
	results := make([]model.RenditionResult, len(presets))

	limit := o.Parallelism
	if limit <= 0 {
		limit = defaultParallelism
	}
	seg := o.SegmentSeconds
	if seg <= 0 {
		seg = defaultSegmentSeconds
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, p := range presets {
		req := model.EncodeRequest{
			SourcePath:     job.SourcePath,
			OutputRoot:     job.OutputRoot,
			Preset:         p,
			Index:          i,
			Format:         job.Format,
			SegmentSeconds: seg,
		}
		g.Go(func() error {
			results[i] = o.encodeOne(ctx, req, tracer)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) encodeOne(ctx context.Context, req model.EncodeRequest, tracer trace.Tracer) (res model.RenditionResult) {
	ctx, span := tracer.Start(ctx, "pipeline.rendition",
		trace.WithAttributes(telemetry.RenditionAttributes(req.Preset.Name, req.Index, req.Preset.Resolution(), req.Preset.VideoBitrate)...))
	defer func() {
		span.SetAttributes(
			attribute.String(telemetry.RenditionStatusKey, string(res.Status)),
			attribute.Int(telemetry.RenditionSegmentsKey, len(res.Segments)),
		)
		if res.Status == model.RenditionFailed {
			span.SetStatus(codes.Error, res.ErrorDetail)
		}
		span.End()
	}()

	if ctx.Err() != nil {
		now := time.Now()
		return model.RenditionResult{
			PresetName:  req.Preset.Name,
			Index:       req.Index,
			Status:      model.RenditionCancelled,
			ErrorDetail: "cancelled",
			StartedAt:   now,
			EndedAt:     now,
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logger := log.WithComponentFromContext(ctx, "orchestrator")
			logger.Error().
				Str(log.FieldPreset, req.Preset.Name).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("encoder panicked")
			res = model.RenditionResult{
				PresetName:  req.Preset.Name,
				Index:       req.Index,
				Status:      model.RenditionFailed,
				ErrorDetail: fmt.Sprintf("encoder panic: %v", r),
				EndedAt:     time.Now(),
			}
		}
	}()

	res = o.Encoder.Encode(ctx, req)
	res.PresetName = req.Preset.Name
	res.Index = req.Index
	return res
}

func (o *Orchestrator) buildManifest(ctx context.Context, job *model.Job) {
	logger := log.WithComponentFromContext(ctx, "manifest")
	variants := manifest.VariantsFor(o.Ladder, job.Renditions)

	var (
		path string
		err  error
	)
	switch job.Format {
	case model.FormatDASH:
		seg := o.SegmentSeconds
		if seg <= 0 {
			seg = defaultSegmentSeconds
		}
		path, err = manifest.BuildDASH(job.OutputRoot, variants, seg)
	default:
		path, err = manifest.BuildHLS(job.OutputRoot, variants)
	}
	metrics.ObserveManifestBuild(string(job.Format), len(variants), err)

	if err != nil {
		job.OverallStatus = model.JobFailed
		job.AddError(model.ErrManifest, err.Error())
		logger.Error().Err(err).Msg("manifest build failed")
		return
	}
	job.ManifestPath = path
	logger.Info().
		Str(log.FieldManifestPath, path).
		Int("variants", len(variants)).
		Msg("manifest written")
}

// startThumbnails runs thumbnail generation concurrently with the encodes.
// The returned channel yields at most one result and is then closed.
func (o *Orchestrator) startThumbnails(ctx context.Context, job *model.Job) <-chan model.ThumbnailResult {
	ch := make(chan model.ThumbnailResult, 1)
	if o.Thumbnails == nil {
		close(ch)
		return ch
	}
	req := model.ThumbnailRequest{
		SourcePath:      job.SourcePath,
		OutputDir:       filepath.Join(job.OutputRoot, model.ThumbnailDirName),
		IntervalSeconds: o.ThumbnailInterval,
	}
	go func() {
		defer close(ch)
		ch <- o.Thumbnails.Generate(ctx, req)
	}()
	return ch
}

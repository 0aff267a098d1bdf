// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package vod runs streaming jobs in the background with exactly-once
// semantics per job id.
package vod

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// ErrNotFound is returned when no active run exists for an id.
var ErrNotFound = errors.New("no active job")

// JobRunner drives one job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, job *model.Job) *model.Job
}

// ResultSink receives finished jobs.
type ResultSink interface {
	Put(ctx context.Context, job *model.Job)
}

// Run is the handle of an active or completed job.
type Run struct {
	ID        string
	StartedAt time.Time

	// Done is closed when the job reaches a terminal state.
	Done chan struct{}

	cancel context.CancelFunc

	mu  sync.Mutex
	job *model.Job // pending snapshot, replaced by the final job before Done closes
}

// Job returns a copy of the latest snapshot.
func (r *Run) Job() *model.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job.Clone()
}

func (r *Run) setJob(job *model.Job) {
	r.mu.Lock()
	r.job = job
	r.mu.Unlock()
}

// Wait blocks until the job finishes or ctx is done.
func (r *Run) Wait(ctx context.Context) (*model.Job, error) {
	select {
	case <-r.Done:
		return r.Job(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel stops the job.
func (r *Run) Cancel() {
	r.cancel()
}

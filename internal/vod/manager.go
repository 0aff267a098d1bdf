// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vod

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/metrics"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

// Manager runs jobs in the background. At most one run per job id is active.
type Manager struct {
	mu      sync.Mutex
	runs    map[string]*Run
	wg      sync.WaitGroup
	runner  JobRunner
	results ResultSink
	log     zerolog.Logger
}

// NewManager creates a Manager. results may be nil.
func NewManager(runner JobRunner, results ResultSink, logger zerolog.Logger) *Manager {
	return &Manager{
		runs:    make(map[string]*Run),
		runner:  runner,
		results: results,
		log:     logger,
	}
}

// Submit starts job unless a run with the same id is active, in which case
// the existing run is returned with isNew=false. The run is detached from ctx;
// use Cancel to stop it.
func (m *Manager) Submit(ctx context.Context, job *model.Job) (*Run, bool) {
	if err := ctx.Err(); err != nil {
		m.log.Debug().Str(log.FieldJobID, job.ID).Err(err).Msg("submit: context already canceled")
		return nil, false
	}

	m.mu.Lock()
	if run, exists := m.runs[job.ID]; exists {
		select {
		case <-run.Done:
			delete(m.runs, job.ID)
		default:
			m.mu.Unlock()
			m.log.Debug().Str(log.FieldJobID, job.ID).Msg("submit: job already active")
			return run, false
		}
	}

	runCtx, cancel := context.WithCancel(context.Background())
	runCtx = log.ContextWithRequestID(runCtx, log.RequestIDFromContext(ctx))

	run := &Run{
		ID:        job.ID,
		StartedAt: time.Now(),
		Done:      make(chan struct{}),
		cancel:    cancel,
		job:       job.Clone(),
	}
	m.runs[job.ID] = run
	m.wg.Add(1)
	metrics.JobsActive.Inc()
	m.mu.Unlock()

	m.log.Info().
		Str(log.FieldJobID, job.ID).
		Str(log.FieldFormat, string(job.Format)).
		Msg("submit: started job")

	go m.execute(runCtx, run, job)
	return run, true
}

// Get returns the active run for id, or nil.
func (m *Manager) Get(id string) *Run {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runs[id]
}

// Active returns the number of running jobs.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// Cancel stops the run for id.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	run, exists := m.runs[id]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m.log.Info().Str(log.FieldJobID, id).Msg("cancel: stopping job")
	run.Cancel()
	return nil
}

// CancelAll stops every active run.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.Info().Int("count", len(m.runs)).Msg("cancel all: stopping jobs")
	for _, run := range m.runs {
		run.Cancel()
	}
}

// Wait blocks until every run has finished or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) execute(ctx context.Context, run *Run, job *model.Job) {
	final := job
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().
				Str(log.FieldJobID, run.ID).
				Interface("panic", r).
				Msg("job panicked")
			final = job.Clone()
			final.OverallStatus = model.JobFailed
			final.AddError(model.ErrEncode, fmt.Sprintf("panic: %v", r))
			final.FinishedAt = time.Now()
		}
		run.cancel()

		if m.results != nil {
			m.results.Put(context.Background(), final)
		}
		run.setJob(final.Clone())

		m.mu.Lock()
		if m.runs[run.ID] == run {
			delete(m.runs, run.ID)
		}
		m.mu.Unlock()
		close(run.Done)
		metrics.JobsActive.Dec()
		m.wg.Done()

		m.log.Info().
			Str(log.FieldJobID, run.ID).
			Str(log.FieldStatus, string(final.OverallStatus)).
			Dur("elapsed", time.Since(run.StartedAt)).
			Msg("job complete")
	}()

	final = m.runner.Run(ctx, job)
}

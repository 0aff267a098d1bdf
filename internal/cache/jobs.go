// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/pipeline/model"
)

const jobKeyPrefix = "abr:job:"

// DefaultJobTTL is how long finished jobs stay queryable.
const DefaultJobTTL = 24 * time.Hour

// JobKey is the storage key of a job snapshot.
func JobKey(id string) string {
	return jobKeyPrefix + id
}

// JobStore keeps JSON snapshots of finished jobs.
type JobStore struct {
	cache Cache
	ttl   time.Duration
}

// NewJobStore wraps c. A non-positive ttl uses DefaultJobTTL.
func NewJobStore(c Cache, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &JobStore{cache: c, ttl: ttl}
}

// Put stores a snapshot of job.
func (s *JobStore) Put(ctx context.Context, job *model.Job) {
	data, err := json.Marshal(job)
	if err != nil {
		logger := log.WithComponentFromContext(ctx, "cache")
		logger.Warn().Err(err).Str(log.FieldJobID, job.ID).Msg("encode job snapshot")
		return
	}
	s.cache.Set(ctx, JobKey(job.ID), data, s.ttl)
}

// Get loads the snapshot for id.
func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, bool) {
	data, ok := s.cache.Get(ctx, JobKey(id))
	if !ok {
		return nil, false
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		logger := log.WithComponentFromContext(ctx, "cache")
		logger.Warn().Err(err).Str(log.FieldJobID, id).Msg("decode job snapshot")
		return nil, false
	}
	return &job, true
}

// Delete forgets the snapshot for id.
func (s *JobStore) Delete(ctx context.Context, id string) {
	s.cache.Delete(ctx, JobKey(id))
}

// Stats exposes the underlying cache counters.
func (s *JobStore) Stats() Stats {
	return s.cache.Stats()
}

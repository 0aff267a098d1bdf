// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ManuGH/abrcast/internal/api"
	"github.com/ManuGH/abrcast/internal/cache"
	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/config"
	"github.com/ManuGH/abrcast/internal/health"
	abrlog "github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/pipeline/exec"
	"github.com/ManuGH/abrcast/internal/pipeline/worker"
	"github.com/ManuGH/abrcast/internal/vod"
)

// buildResultStore returns the finished-job store and the cache backing it.
// Redis is used when an address is configured; otherwise results stay in process.
func buildResultStore(ctx context.Context, cfg config.ResultsConfig, logger zerolog.Logger) (*cache.JobStore, cache.Cache, error) {
	var backing cache.Cache
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, abrlog.WithComponent("cache"))
		if err != nil {
			return nil, nil, fmt.Errorf("result store: %w", err)
		}
		backing = rc
		logger.Info().Str("backend", "redis").Str("addr", cfg.RedisAddr).Msg("job results shared via redis")
	} else {
		backing = cache.NewMemoryCache(cfg.TTL / 4)
		logger.Info().Str("backend", "memory").Msg("job results kept in process")
	}
	return cache.NewJobStore(backing, cfg.TTL), backing, nil
}

func buildFactory(cfg config.AppConfig) exec.Factory {
	if cfg.DryRun {
		return &exec.StubFactory{}
	}
	return exec.NewRealFactory(cfg.FFmpeg.Bin, cfg.FFmpeg.KillGrace)
}

func buildOrchestrator(cfg config.AppConfig, f exec.Factory) *worker.Orchestrator {
	orch := worker.New(cfg.Pipeline.Ladder, f)
	orch.Parallelism = cfg.Pipeline.Parallelism
	orch.SegmentSeconds = cfg.Pipeline.SegmentSeconds
	orch.ThumbnailInterval = cfg.Pipeline.ThumbnailInterval
	return orch
}

func buildGateway(cfg config.AppConfig) *cdn.Gateway {
	table := cfg.Delivery.Table()
	return cdn.NewGateway(table, cdn.DefaultProviders(table, cdn.ProviderOptions{}), cdn.Options{
		LocalPrefix:      cfg.MediaURL,
		PurgeRPS:         cfg.Delivery.PurgeRPS,
		BreakerThreshold: cfg.Delivery.BreakerThreshold,
		BreakerReset:     cfg.Delivery.BreakerReset,
	})
}

// buildReadiness checks the data dir, the encoder binary and, when shared,
// the result store.
func buildReadiness(cfg config.AppConfig, results cache.Cache) *health.Manager {
	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.DataDirChecker(cfg.DataDir))
	if !cfg.DryRun {
		hm.RegisterChecker(health.FFmpegChecker(cfg.FFmpeg.Bin))
	}
	if p, ok := results.(interface{ HealthCheck(context.Context) error }); ok {
		hm.RegisterChecker(health.NewChecker("results", p.HealthCheck))
	}
	return hm
}

func buildAPI(cfg config.AppConfig, manager *vod.Manager, results *cache.JobStore, gateway *cdn.Gateway, ready *health.Manager) *api.Server {
	return api.New(api.Config{
		Version:         cfg.Version,
		DataDir:         cfg.DataDir,
		DefaultProvider: cfg.Delivery.DefaultProvider,
		CacheMaxAge:     cfg.Delivery.CacheMaxAge,
		RateLimit:       cfg.API.RateLimit,
		TracingService:  tracingService(cfg),
	}, api.Deps{
		Jobs:     manager,
		Results:  results,
		Delivery: gateway,
		Ready:    http.HandlerFunc(ready.ServeReady),
	})
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Tracing.Enabled() {
		return ""
	}
	return cfg.Tracing.ServiceName
}

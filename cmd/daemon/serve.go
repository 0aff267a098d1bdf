// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/abrcast/internal/config"
	"github.com/ManuGH/abrcast/internal/fsutil"
	"github.com/ManuGH/abrcast/internal/health"
	abrlog "github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/telemetry"
	"github.com/ManuGH/abrcast/internal/vod"
)

// run wires the daemon and serves until ctx is cancelled. Shutdown stops
// accepting requests first, then cancels in-flight jobs and waits for them.
func run(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) error {
	return serve(ctx, cfg, logger, nil)
}

// serve is run with an optional pre-bound listener.
func serve(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger, ln net.Listener) error {
	if err := fsutil.EnsureWritableDir(cfg.DataDir); err != nil {
		return fmt.Errorf("data dir: %w", err)
	}
	if err := health.PerformStartupChecks(cfg); err != nil {
		return fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	results, backing, err := buildResultStore(ctx, cfg.Results, logger)
	if err != nil {
		return err
	}
	defer func() { _ = backing.Close() }()

	orch := buildOrchestrator(cfg, buildFactory(cfg))
	manager := vod.NewManager(orch, results, abrlog.WithComponent("vod"))
	gateway := buildGateway(cfg)
	ready := buildReadiness(cfg, backing)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           buildAPI(cfg, manager, results, gateway, ready).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if ln != nil {
			err = srv.Serve(ln)
		} else {
			logger.Info().Str(abrlog.FieldEvent, "api.listen").Str("addr", cfg.ListenAddr).Msg("api listening")
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(abrlog.FieldEvent, "shutdown.start").Int("active_jobs", manager.Active()).Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		httpErr := srv.Shutdown(sctx)
		manager.CancelAll()
		if err := manager.Wait(sctx); err != nil {
			return errors.Join(httpErr, fmt.Errorf("jobs did not stop: %w", err))
		}
		return httpErr
	})
	return g.Wait()
}

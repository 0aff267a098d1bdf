// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command daemon runs the rendition pipeline and delivery gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ManuGH/abrcast/internal/config"
	abrlog "github.com/ManuGH/abrcast/internal/log"
	platformnet "github.com/ManuGH/abrcast/internal/platform/net"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	abrlog.Configure(abrlog.Config{Level: "info", Service: "abrcast", Version: version})
	logger := abrlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = resolveDefaultConfigPath()
	}

	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(abrlog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	abrlog.Configure(abrlog.Config{Level: cfg.LogLevel, Service: "abrcast", Version: cfg.Version})
	logger = abrlog.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(abrlog.FieldEvent, "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Str("config_source", source).
		Str("addr", cfg.ListenAddr).
		Str("data_dir", cfg.DataDir).
		Strs("ladder", cfg.Pipeline.Ladder.Names()).
		Strs("providers", cfg.Delivery.Table().Names()).
		Bool("dry_run", cfg.DryRun).
		Msg("starting abrcast")
	for _, p := range cfg.Delivery.Providers {
		logger.Info().
			Str(abrlog.FieldEvent, "cdn.provider").
			Str("provider", p.Name).
			Str("base_url", platformnet.SanitizeURL(p.BaseURL)).
			Int("credentials", len(p.Credentials)).
			Msg("cdn provider configured")
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().
			Err(err).
			Str(abrlog.FieldEvent, "daemon.failed").
			Msg("daemon failed")
	}
	logger.Info().Msg("server exiting")
}

// resolveDefaultConfigPath returns ${ABR_DATA}/config.yaml when it exists.
func resolveDefaultConfigPath() string {
	dataDir := strings.TrimSpace(os.Getenv(config.EnvDataDir))
	if dataDir == "" {
		dataDir = config.DefaultDataDir
	}
	autoPath := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(autoPath); err == nil {
		return autoPath
	}
	return ""
}

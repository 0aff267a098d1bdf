// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/config"
)

const redacted = "***"

var secretCredentials = map[string]bool{
	cdn.CredAPIToken:        true,
	cdn.CredAPIKey:          true,
	cdn.CredAccessKeyID:     true,
	cdn.CredSecretAccessKey: true,
}

func runConfigCLI(args []string) int {
	return configCLI(args, os.Stdout, os.Stderr)
}

func configCLI(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printConfigUsage(stderr)
		return 0
	}

	switch args[0] {
	case "validate":
		return runConfigValidate(args[1:], stdout, stderr)
	case "dump":
		return runConfigDump(args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "Unknown subcommand: %s\n\n", args[0])
		printConfigUsage(stderr)
		return 2
	}
}

func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  abrcast config validate [--file|-f config.yaml]")
	fmt.Fprintln(w, "  abrcast config dump [--file|-f config.yaml] [--format=yaml|json]")
}

func configFlags(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	file := new(string)
	fs.StringVar(file, "file", "", "path to YAML configuration file")
	fs.StringVar(file, "f", "", "path to YAML configuration file (shorthand)")
	return fs, file
}

func loadForCLI(file string, stderr io.Writer) (config.AppConfig, bool) {
	path := strings.TrimSpace(file)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	cfg, err := config.NewLoader(path, version).Load()
	if err != nil {
		source := path
		if source == "" {
			source = "environment"
		}
		fmt.Fprintf(stderr, "Configuration error in %s:\n  %v\n", source, err)
		return config.AppConfig{}, false
	}
	return cfg, true
}

func runConfigValidate(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("abrcast config validate", stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if _, ok := loadForCLI(*file, stderr); !ok {
		return 1
	}
	target := *file
	if target == "" {
		target = "configuration"
	}
	fmt.Fprintf(stdout, "%s is valid\n", target)
	return 0
}

func runConfigDump(args []string, stdout, stderr io.Writer) int {
	fs, file := configFlags("abrcast config dump", stderr)
	format := fs.String("format", "yaml", "output format: yaml or json")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ok := loadForCLI(*file, stderr)
	if !ok {
		return 1
	}
	fileCfg := fileConfigFromAppConfig(cfg)
	redactFileConfigSecrets(&fileCfg)

	raw, err := yaml.Marshal(fileCfg)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to encode YAML: %v\n", err)
		return 1
	}

	switch strings.ToLower(strings.TrimSpace(*format)) {
	case "yaml", "yml":
		_, _ = stdout.Write(raw)
		return 0
	case "json":
		var generic map[string]any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			fmt.Fprintf(stderr, "Failed to convert to JSON: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(generic); err != nil {
			fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(stderr, "Unsupported format: %s (use yaml or json)\n", *format)
		return 2
	}
}

func fileConfigFromAppConfig(cfg config.AppConfig) config.FileConfig {
	dryRun := cfg.DryRun
	purgeRPS := cfg.Delivery.PurgeRPS
	breakerThreshold := cfg.Delivery.BreakerThreshold
	rateLimit := cfg.API.RateLimit
	sampling := cfg.Tracing.SamplingRate
	l := cfg.Pipeline.Ladder

	providers := make(map[string]config.FileProvider, len(cfg.Delivery.Providers))
	for _, p := range cfg.Delivery.Providers {
		creds := make(map[string]string, len(p.Credentials))
		for k, v := range p.Credentials {
			creds[k] = v
		}
		providers[p.Name] = config.FileProvider{BaseURL: p.BaseURL, Credentials: creds}
	}

	return config.FileConfig{
		Listen:   cfg.ListenAddr,
		DataDir:  cfg.DataDir,
		MediaURL: cfg.MediaURL,
		LogLevel: cfg.LogLevel,
		DryRun:   &dryRun,
		FFmpeg: config.FileFFmpeg{
			Bin:       cfg.FFmpeg.Bin,
			KillGrace: cfg.FFmpeg.KillGrace,
		},
		Pipeline: config.FilePipeline{
			SegmentSeconds:    cfg.Pipeline.SegmentSeconds,
			ThumbnailInterval: cfg.Pipeline.ThumbnailInterval,
			Parallelism:       cfg.Pipeline.Parallelism,
			Ladder:            &l,
		},
		Results: config.FileResults{
			RedisAddr:     cfg.Results.RedisAddr,
			RedisPassword: cfg.Results.RedisPassword,
			RedisDB:       cfg.Results.RedisDB,
			TTL:           cfg.Results.TTL,
		},
		Delivery: config.FileDelivery{
			CacheMaxAge:     cfg.Delivery.CacheMaxAge,
			PurgeRPS:        &purgeRPS,
			DefaultProvider: cfg.Delivery.DefaultProvider,
			Providers:       providers,

			BreakerThreshold: &breakerThreshold,
			BreakerReset:     cfg.Delivery.BreakerReset,
		},
		API: config.FileAPI{
			RateLimit:       &rateLimit,
			ShutdownTimeout: cfg.API.ShutdownTimeout,
		},
		Tracing: config.FileTracing{
			Exporter:     cfg.Tracing.Exporter,
			Endpoint:     cfg.Tracing.Endpoint,
			SamplingRate: &sampling,
		},
	}
}

func redactFileConfigSecrets(cfg *config.FileConfig) {
	if cfg == nil {
		return
	}
	if cfg.Results.RedisPassword != "" {
		cfg.Results.RedisPassword = redacted
	}
	for _, p := range cfg.Delivery.Providers {
		for k, v := range p.Credentials {
			if v != "" && secretCredentials[k] {
				p.Credentials[k] = redacted
			}
		}
	}
}

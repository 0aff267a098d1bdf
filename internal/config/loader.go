// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/log"
	platformnet "github.com/ManuGH/abrcast/internal/platform/net"
)

// Loader resolves an AppConfig from defaults, an optional YAML file and the environment.
type Loader struct {
	configPath string
	version    string
	lookup     LookupFunc
	logger     zerolog.Logger
	// ConsumedEnvKeys records every env key the loader consulted.
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a loader reading the process environment.
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		lookup:          os.LookupEnv,
		logger:          log.WithComponent("config"),
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

// WithLookup replaces the environment source.
func (l *Loader) WithLookup(fn LookupFunc) *Loader {
	l.lookup = fn
	return l
}

func (l *Loader) envString(key, def string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return parseEnv(l.logger, l.lookup, key, def, parseString)
}

func (l *Loader) envBool(key string, def bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return parseEnv(l.logger, l.lookup, key, def, parseBool)
}

func (l *Loader) envInt(key string, def int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return parseEnv(l.logger, l.lookup, key, def, parseInt)
}

func (l *Loader) envDuration(key string, def time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return parseEnv(l.logger, l.lookup, key, def, parseDuration)
}

func (l *Loader) envFloat(key string, def float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return parseEnv(l.logger, l.lookup, key, def, parseFloat)
}

// Load applies defaults, then the file, then env, and validates the result.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		mergeFile(&cfg, fileCfg)
	}
	l.mergeEnv(&cfg)
	cfg.Version = l.version

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = "abrcast"
	}
	cfg.Tracing.ServiceVersion = l.version
	for i, p := range cfg.Delivery.Providers {
		if n, err := platformnet.NormalizeBaseURL(p.BaseURL); err == nil {
			cfg.Delivery.Providers[i].BaseURL = n
		}
	}

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFile parses path strictly. Unknown keys are fatal.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("%w: %s (only YAML supported)", ErrUnsupportedFormat, ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parseFile(data)
}

func parseFile(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return &fileCfg, nil
}

func mergeFile(cfg *AppConfig, f *FileConfig) {
	setString(&cfg.ListenAddr, f.Listen)
	setString(&cfg.DataDir, f.DataDir)
	setString(&cfg.MediaURL, f.MediaURL)
	setString(&cfg.LogLevel, f.LogLevel)
	if f.DryRun != nil {
		cfg.DryRun = *f.DryRun
	}

	setString(&cfg.FFmpeg.Bin, f.FFmpeg.Bin)
	setDuration(&cfg.FFmpeg.KillGrace, f.FFmpeg.KillGrace)

	setInt(&cfg.Pipeline.SegmentSeconds, f.Pipeline.SegmentSeconds)
	setInt(&cfg.Pipeline.ThumbnailInterval, f.Pipeline.ThumbnailInterval)
	setInt(&cfg.Pipeline.Parallelism, f.Pipeline.Parallelism)
	if f.Pipeline.Ladder != nil {
		cfg.Pipeline.Ladder = *f.Pipeline.Ladder
	}

	setString(&cfg.Results.RedisAddr, f.Results.RedisAddr)
	setString(&cfg.Results.RedisPassword, f.Results.RedisPassword)
	setInt(&cfg.Results.RedisDB, f.Results.RedisDB)
	setDuration(&cfg.Results.TTL, f.Results.TTL)

	setDuration(&cfg.Delivery.CacheMaxAge, f.Delivery.CacheMaxAge)
	if f.Delivery.PurgeRPS != nil {
		cfg.Delivery.PurgeRPS = *f.Delivery.PurgeRPS
	}
	setString(&cfg.Delivery.DefaultProvider, f.Delivery.DefaultProvider)
	if f.Delivery.BreakerThreshold != nil {
		cfg.Delivery.BreakerThreshold = *f.Delivery.BreakerThreshold
	}
	setDuration(&cfg.Delivery.BreakerReset, f.Delivery.BreakerReset)
	names := make([]string, 0, len(f.Delivery.Providers))
	for name := range f.Delivery.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := f.Delivery.Providers[name]
		upsertProvider(&cfg.Delivery, cdn.ProviderConfig{Name: name, BaseURL: p.BaseURL, Credentials: p.Credentials})
	}

	if f.API.RateLimit != nil {
		cfg.API.RateLimit = *f.API.RateLimit
	}
	setDuration(&cfg.API.ShutdownTimeout, f.API.ShutdownTimeout)

	setString(&cfg.Tracing.Exporter, f.Tracing.Exporter)
	setString(&cfg.Tracing.Endpoint, f.Tracing.Endpoint)
	if f.Tracing.SamplingRate != nil {
		cfg.Tracing.SamplingRate = *f.Tracing.SamplingRate
	}
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.ListenAddr = l.envString(EnvListen, cfg.ListenAddr)
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.MediaURL = l.envString(EnvMediaURL, cfg.MediaURL)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.DryRun = l.envBool(EnvDryRun, cfg.DryRun)

	cfg.FFmpeg.Bin = l.envString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.KillGrace = l.envDuration(EnvKillGrace, cfg.FFmpeg.KillGrace)

	cfg.Pipeline.SegmentSeconds = l.envInt(EnvSegmentSeconds, cfg.Pipeline.SegmentSeconds)
	cfg.Pipeline.ThumbnailInterval = l.envInt(EnvThumbnailInterval, cfg.Pipeline.ThumbnailInterval)
	cfg.Pipeline.Parallelism = l.envInt(EnvParallelism, cfg.Pipeline.Parallelism)

	cfg.Results.RedisAddr = l.envString(EnvRedisAddr, cfg.Results.RedisAddr)
	cfg.Results.RedisPassword = l.envString(EnvRedisPassword, cfg.Results.RedisPassword)
	cfg.Results.RedisDB = l.envInt(EnvRedisDB, cfg.Results.RedisDB)
	cfg.Results.TTL = l.envDuration(EnvJobResultTTL, cfg.Results.TTL)

	cfg.Delivery.CacheMaxAge = l.envDuration(EnvCacheMaxAge, cfg.Delivery.CacheMaxAge)
	cfg.Delivery.PurgeRPS = l.envFloat(EnvPurgeRPS, cfg.Delivery.PurgeRPS)
	cfg.Delivery.DefaultProvider = l.envString(EnvDefaultProvider, cfg.Delivery.DefaultProvider)
	cfg.Delivery.BreakerThreshold = l.envInt(EnvBreakerThreshold, cfg.Delivery.BreakerThreshold)
	cfg.Delivery.BreakerReset = l.envDuration(EnvBreakerReset, cfg.Delivery.BreakerReset)
	for _, pe := range providerEnvs {
		l.mergeProviderEnv(&cfg.Delivery, pe)
	}

	cfg.API.RateLimit = l.envInt(EnvRateLimit, cfg.API.RateLimit)
	cfg.API.ShutdownTimeout = l.envDuration(EnvShutdownTimeout, cfg.API.ShutdownTimeout)

	cfg.Tracing.Exporter = l.envString(EnvTracingExporter, cfg.Tracing.Exporter)
	cfg.Tracing.Endpoint = l.envString(EnvTracingEndpoint, cfg.Tracing.Endpoint)
	cfg.Tracing.SamplingRate = l.envFloat(EnvTracingSampling, cfg.Tracing.SamplingRate)
}

// mergeProviderEnv overlays env values on the named provider. A provider with
// nothing set anywhere is left out of the table.
func (l *Loader) mergeProviderEnv(d *DeliveryConfig, pe providerEnv) {
	current, _ := findProvider(d.Providers, pe.name)
	next := cdn.ProviderConfig{
		Name:        pe.name,
		BaseURL:     l.envString(pe.baseURL, current.BaseURL),
		Credentials: make(map[string]string, len(pe.credentials)),
	}
	for k, v := range current.Credentials {
		next.Credentials[k] = v
	}
	keys := make([]string, 0, len(pe.credentials))
	for k := range pe.credentials {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := l.envString(pe.credentials[k], next.Credentials[k]); v != "" {
			next.Credentials[k] = v
		}
	}
	if next.BaseURL == "" && len(next.Credentials) == 0 {
		return
	}
	upsertProvider(d, next)
}

func findProvider(list []cdn.ProviderConfig, name string) (cdn.ProviderConfig, int) {
	for i, p := range list {
		if p.Name == name {
			return p, i
		}
	}
	return cdn.ProviderConfig{}, -1
}

func upsertProvider(d *DeliveryConfig, p cdn.ProviderConfig) {
	if _, i := findProvider(d.Providers, p.Name); i >= 0 {
		d.Providers[i] = p
		return
	}
	d.Providers = append(d.Providers, p)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}

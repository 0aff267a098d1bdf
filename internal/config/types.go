// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/telemetry"
)

// AppConfig is the resolved daemon configuration.
type AppConfig struct {
	Version    string
	ListenAddr string
	// DataDir is the absolute root for job output; jobs write to DataDir/streaming/{id}.
	DataDir string
	// MediaURL is the local-serving prefix used when no CDN base URL applies.
	MediaURL string
	LogLevel string
	// DryRun swaps ffmpeg for the stub encoder.
	DryRun bool

	FFmpeg   FFmpegConfig
	Pipeline PipelineConfig
	Results  ResultsConfig
	Delivery DeliveryConfig
	API      APIConfig
	Tracing  telemetry.Config
}

// FFmpegConfig locates the encoder binary.
type FFmpegConfig struct {
	Bin       string
	KillGrace time.Duration
}

// PipelineConfig drives the orchestrator.
type PipelineConfig struct {
	SegmentSeconds    int
	ThumbnailInterval int
	Parallelism       int
	Ladder            ladder.Ladder
}

// ResultsConfig selects the job result store. An empty RedisAddr keeps results in memory.
type ResultsConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// DeliveryConfig configures URL resolution, purges and local serving.
type DeliveryConfig struct {
	CacheMaxAge     time.Duration
	PurgeRPS        float64
	DefaultProvider string
	Providers       []cdn.ProviderConfig

	// BreakerThreshold consecutive purge failures open a provider's breaker
	// for BreakerReset. Zero disables breaking.
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Table builds the immutable provider table.
func (d DeliveryConfig) Table() cdn.Table {
	return cdn.NewTable(d.Providers...)
}

// APIConfig tunes the HTTP surface.
type APIConfig struct {
	// RateLimit is requests per minute per client IP; zero disables limiting.
	RateLimit       int
	ShutdownTimeout time.Duration
}

// FileConfig mirrors the YAML file. Zero values mean "not set".
type FileConfig struct {
	Listen   string `yaml:"listen,omitempty"`
	DataDir  string `yaml:"dataDir,omitempty"`
	MediaURL string `yaml:"mediaUrl,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
	DryRun   *bool  `yaml:"dryRun,omitempty"`

	FFmpeg   FileFFmpeg   `yaml:"ffmpeg,omitempty"`
	Pipeline FilePipeline `yaml:"pipeline,omitempty"`
	Results  FileResults  `yaml:"results,omitempty"`
	Delivery FileDelivery `yaml:"delivery,omitempty"`
	API      FileAPI      `yaml:"api,omitempty"`
	Tracing  FileTracing  `yaml:"tracing,omitempty"`
}

type FileFFmpeg struct {
	Bin       string        `yaml:"bin,omitempty"`
	KillGrace time.Duration `yaml:"killGrace,omitempty"`
}

type FilePipeline struct {
	SegmentSeconds    int            `yaml:"segmentSeconds,omitempty"`
	ThumbnailInterval int            `yaml:"thumbnailInterval,omitempty"`
	Parallelism       int            `yaml:"parallelism,omitempty"`
	Ladder            *ladder.Ladder `yaml:"ladder,omitempty"`
}

type FileResults struct {
	RedisAddr     string        `yaml:"redisAddr,omitempty"`
	RedisPassword string        `yaml:"redisPassword,omitempty"`
	RedisDB       int           `yaml:"redisDb,omitempty"`
	TTL           time.Duration `yaml:"ttl,omitempty"`
}

type FileDelivery struct {
	CacheMaxAge     time.Duration           `yaml:"cacheMaxAge,omitempty"`
	PurgeRPS        *float64                `yaml:"purgeRps,omitempty"`
	DefaultProvider string                  `yaml:"defaultProvider,omitempty"`
	Providers       map[string]FileProvider `yaml:"providers,omitempty"`

	// BreakerThreshold is a pointer so an explicit 0 disables breaking.
	BreakerThreshold *int          `yaml:"breakerThreshold,omitempty"`
	BreakerReset     time.Duration `yaml:"breakerReset,omitempty"`
}

type FileProvider struct {
	BaseURL     string            `yaml:"baseUrl,omitempty"`
	Credentials map[string]string `yaml:"credentials,omitempty"`
}

type FileAPI struct {
	RateLimit       *int          `yaml:"rateLimit,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

type FileTracing struct {
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}

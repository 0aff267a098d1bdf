// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"

	"github.com/rs/zerolog"

	platformnet "github.com/ManuGH/abrcast/internal/platform/net"
	"github.com/ManuGH/abrcast/internal/validate"
)

// Validate checks cfg as a whole and reports every failing field.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("ListenAddr", cfg.ListenAddr)
	v.AbsPath("DataDir", cfg.DataDir)
	v.NotEmpty("MediaURL", cfg.MediaURL)
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil || cfg.LogLevel == "" {
		v.AddError("LogLevel", "invalid log level (must be: debug, info, warn, error)", cfg.LogLevel)
	}

	v.NotEmpty("FFmpeg.Bin", cfg.FFmpeg.Bin)
	v.PositiveDuration("FFmpeg.KillGrace", cfg.FFmpeg.KillGrace)

	v.Positive("Pipeline.SegmentSeconds", cfg.Pipeline.SegmentSeconds)
	v.Positive("Pipeline.ThumbnailInterval", cfg.Pipeline.ThumbnailInterval)
	v.Range("Pipeline.Parallelism", cfg.Pipeline.Parallelism, 1, 32)
	if cfg.Pipeline.Ladder.Len() == 0 {
		v.AddError("Pipeline.Ladder", "ladder must contain at least one preset", nil)
	}

	v.Range("Results.RedisDB", cfg.Results.RedisDB, 0, 15)
	v.PositiveDuration("Results.TTL", cfg.Results.TTL)

	v.PositiveDuration("Delivery.CacheMaxAge", cfg.Delivery.CacheMaxAge)
	v.NonNegativeFloat("Delivery.PurgeRPS", cfg.Delivery.PurgeRPS)
	if cfg.Delivery.BreakerThreshold < 0 {
		v.AddError("Delivery.BreakerThreshold", "value cannot be negative", cfg.Delivery.BreakerThreshold)
	}
	if cfg.Delivery.BreakerThreshold > 0 {
		v.PositiveDuration("Delivery.BreakerReset", cfg.Delivery.BreakerReset)
	}
	for _, p := range cfg.Delivery.Providers {
		if p.BaseURL != "" {
			if _, err := platformnet.NormalizeBaseURL(p.BaseURL); err != nil {
				v.AddError("Delivery.Providers."+p.Name+".BaseURL", err.Error(), p.BaseURL)
			}
		}
	}

	if cfg.API.RateLimit < 0 {
		v.AddError("API.RateLimit", "value cannot be negative", cfg.API.RateLimit)
	}
	v.PositiveDuration("API.ShutdownTimeout", cfg.API.ShutdownTimeout)

	if cfg.Tracing.Enabled() {
		v.OneOf("Tracing.Exporter", strings.ToLower(cfg.Tracing.Exporter), "grpc", "http")
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
	}
	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		v.AddError("Tracing.SamplingRate", "value must be between 0 and 1", cfg.Tracing.SamplingRate)
	}

	return v.Err()
}

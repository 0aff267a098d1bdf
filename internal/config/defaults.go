// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"time"

	"github.com/ManuGH/abrcast/internal/cdn"
	"github.com/ManuGH/abrcast/internal/ladder"
	"github.com/ManuGH/abrcast/internal/telemetry"
)

const (
	DefaultListenAddr        = ":8088"
	DefaultDataDir           = "/var/lib/abrcast"
	DefaultMediaURL          = "/media/"
	DefaultFFmpegBin         = "ffmpeg"
	DefaultKillGrace         = 5 * time.Second
	DefaultSegmentSeconds    = 6
	DefaultThumbnailInterval = 10
	DefaultParallelism       = 2
	DefaultJobResultTTL      = 24 * time.Hour
	DefaultCacheMaxAge       = time.Hour
	DefaultPurgeRPS          = 5
	DefaultBreakerThreshold  = 5
	DefaultBreakerReset      = 30 * time.Second
	DefaultRateLimit         = 120
	DefaultShutdownTimeout   = 30 * time.Second
)

// Defaults returns the configuration used when neither file nor env set a value.
func Defaults() AppConfig {
	return AppConfig{
		ListenAddr: DefaultListenAddr,
		DataDir:    DefaultDataDir,
		MediaURL:   DefaultMediaURL,
		LogLevel:   "info",
		FFmpeg: FFmpegConfig{
			Bin:       DefaultFFmpegBin,
			KillGrace: DefaultKillGrace,
		},
		Pipeline: PipelineConfig{
			SegmentSeconds:    DefaultSegmentSeconds,
			ThumbnailInterval: DefaultThumbnailInterval,
			Parallelism:       DefaultParallelism,
			Ladder:            ladder.Default(),
		},
		Results: ResultsConfig{TTL: DefaultJobResultTTL},
		Delivery: DeliveryConfig{
			CacheMaxAge:     DefaultCacheMaxAge,
			PurgeRPS:        DefaultPurgeRPS,
			DefaultProvider:  cdn.Cloudflare,
			BreakerThreshold: DefaultBreakerThreshold,
			BreakerReset:     DefaultBreakerReset,
		},
		API: APIConfig{
			RateLimit:       DefaultRateLimit,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Tracing: telemetry.Config{ServiceName: "abrcast", SamplingRate: 1},
	}
}

// providerEnvs lists the built-in providers in table order.
var providerEnvs = []providerEnv{
	{
		name:    cdn.Cloudflare,
		baseURL: EnvCloudflareURL,
		credentials: map[string]string{
			cdn.CredZoneID:   EnvCloudflareZoneID,
			cdn.CredAPIToken: EnvCloudflareAPIToken,
		},
	},
	{
		name:    cdn.CloudFront,
		baseURL: EnvCloudFrontURL,
		credentials: map[string]string{
			cdn.CredDistributionID:  EnvCloudFrontDistributionID,
			cdn.CredRegion:          EnvCloudFrontRegion,
			cdn.CredAccessKeyID:     EnvCloudFrontAccessKeyID,
			cdn.CredSecretAccessKey: EnvCloudFrontSecretKey,
		},
	},
	{
		name:    cdn.Fastly,
		baseURL: EnvFastlyURL,
		credentials: map[string]string{
			cdn.CredServiceID: EnvFastlyServiceID,
			cdn.CredAPIKey:    EnvFastlyAPIKey,
		},
	},
}

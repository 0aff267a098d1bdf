// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

// Environment variables recognised by the loader.
const (
	EnvListen            = "ABR_LISTEN"
	EnvDataDir           = "ABR_DATA"
	EnvMediaURL          = "ABR_MEDIA_URL"
	EnvLogLevel          = "LOG_LEVEL"
	EnvDryRun            = "ABR_DRY_RUN"
	EnvFFmpegBin         = "ABR_FFMPEG_BIN"
	EnvKillGrace         = "ABR_KILL_GRACE"
	EnvSegmentSeconds    = "ABR_SEGMENT_SECONDS"
	EnvThumbnailInterval = "ABR_THUMBNAIL_INTERVAL"
	EnvParallelism       = "ABR_ENCODE_PARALLELISM"
	EnvJobResultTTL      = "ABR_JOB_RESULT_TTL"
	EnvRedisAddr         = "ABR_REDIS_ADDR"
	EnvRedisPassword     = "ABR_REDIS_PASSWORD"
	EnvRedisDB           = "ABR_REDIS_DB"
	EnvCacheMaxAge       = "ABR_CACHE_MAX_AGE"
	EnvPurgeRPS          = "ABR_PURGE_RPS"
	EnvDefaultProvider   = "ABR_CDN_PROVIDER"
	EnvBreakerThreshold  = "ABR_CDN_BREAKER_THRESHOLD"
	EnvBreakerReset      = "ABR_CDN_BREAKER_RESET"
	EnvRateLimit         = "ABR_API_RATE_LIMIT"
	EnvShutdownTimeout   = "ABR_SHUTDOWN_TIMEOUT"
	EnvTracingExporter   = "ABR_TRACING_EXPORTER"
	EnvTracingEndpoint   = "ABR_TRACING_ENDPOINT"
	EnvTracingSampling   = "ABR_TRACING_SAMPLING_RATE"

	EnvCloudflareURL      = "CLOUDFLARE_CDN_URL"
	EnvCloudflareZoneID   = "CLOUDFLARE_ZONE_ID"
	EnvCloudflareAPIToken = "CLOUDFLARE_API_TOKEN"

	EnvCloudFrontURL            = "CLOUDFRONT_CDN_URL"
	EnvCloudFrontDistributionID = "CLOUDFRONT_DISTRIBUTION_ID"
	EnvCloudFrontRegion         = "CLOUDFRONT_REGION"
	EnvCloudFrontAccessKeyID    = "CLOUDFRONT_ACCESS_KEY_ID"
	EnvCloudFrontSecretKey      = "CLOUDFRONT_SECRET_ACCESS_KEY"

	EnvFastlyURL       = "FASTLY_CDN_URL"
	EnvFastlyServiceID = "FASTLY_SERVICE_ID"
	EnvFastlyAPIKey    = "FASTLY_API_KEY"
)

// providerEnv maps a provider's base URL and credential keys to env vars.
type providerEnv struct {
	name        string
	baseURL     string
	credentials map[string]string
}

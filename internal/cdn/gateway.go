// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cdn

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ManuGH/abrcast/internal/log"
	"github.com/ManuGH/abrcast/internal/metrics"
	"github.com/ManuGH/abrcast/internal/resilience"
	"github.com/ManuGH/abrcast/internal/telemetry"
)

// Gateway resolves delivery URLs and dispatches purges by provider name.
// All fields are read-only after NewGateway returns.
type Gateway struct {
	table       Table
	localPrefix string
	providers   map[string]Provider
	limiters    map[string]*rate.Limiter
	breakers    map[string]*resilience.CircuitBreaker
	tracer      trace.Tracer
}

// Options configures NewGateway.
type Options struct {
	// LocalPrefix is prepended verbatim to paths when no CDN is configured.
	LocalPrefix string
	// PurgeRPS limits outbound purge submissions per provider. Zero disables throttling.
	PurgeRPS float64
	// BreakerThreshold opens a provider's breaker after that many consecutive
	// submit failures. Zero disables breaking.
	BreakerThreshold int
	BreakerReset     time.Duration
	Tracer           trace.Tracer
}

// NewGateway returns a Gateway over table and the given provider backends.
func NewGateway(table Table, providers []Provider, opts Options) *Gateway {
	g := &Gateway{
		table:       table,
		localPrefix: opts.LocalPrefix,
		providers:   make(map[string]Provider, len(providers)),
		limiters:    make(map[string]*rate.Limiter, len(providers)),
		breakers:    make(map[string]*resilience.CircuitBreaker, len(providers)),
		tracer:      opts.Tracer,
	}
	if g.tracer == nil {
		g.tracer = telemetry.Tracer(telemetry.CDNTracer)
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
		if opts.PurgeRPS > 0 {
			g.limiters[p.Name()] = rate.NewLimiter(rate.Limit(opts.PurgeRPS), 1)
		}
		if opts.BreakerThreshold > 0 {
			g.breakers[p.Name()] = resilience.NewCircuitBreaker(p.Name(), opts.BreakerThreshold, opts.BreakerReset)
		}
	}
	return g
}

// Providers returns the names of the registered purge backends.
func (g *Gateway) Providers() []string {
	out := make([]string, 0, len(g.providers))
	for _, name := range g.table.Names() {
		if _, ok := g.providers[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// ResolveURL maps a stored file path to its public URL. It never fails:
// an unknown provider or one without a base URL yields the local fallback.
func (g *Gateway) ResolveURL(path, provider string) string {
	cfg, ok := g.table.Lookup(provider)
	if !ok || strings.TrimSpace(cfg.BaseURL) == "" {
		metrics.IncURLResolution(provider, true)
		return g.localPrefix + path
	}
	metrics.IncURLResolution(provider, false)
	return strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ResolveURLs resolves paths in order, dropping duplicate URLs.
func (g *Gateway) ResolveURLs(paths []string, provider string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		u := g.ResolveURL(p, provider)
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Purge invalidates paths at provider. Failures are reported in the Outcome.
func (g *Gateway) Purge(ctx context.Context, paths []string, provider string) (out Outcome) {
	urls := g.ResolveURLs(paths, provider)
	logger := log.WithComponentFromContext(ctx, "cdn")

	ctx, span := g.tracer.Start(ctx, "cdn.purge")
	defer span.End()
	defer func() {
		span.SetAttributes(telemetry.PurgeAttributes(provider, len(urls), string(out.Reason))...)
		if !out.Success {
			span.SetStatus(codes.Error, out.Detail)
		}
		metrics.ObservePurge(provider, string(out.Reason), len(urls))
		ev := logger.Info()
		if !out.Success {
			ev = logger.Warn().Str("reason", string(out.Reason)).Str("detail", out.Detail)
		}
		ev.Str(log.FieldProvider, provider).Int("files", len(urls)).Msg("cdn purge")
	}()

	p, ok := g.providers[provider]
	if !ok {
		return Outcome{Reason: ReasonUnsupportedProvider, Detail: "unsupported CDN provider: " + provider}
	}
	if len(urls) == 0 {
		return Outcome{Success: true}
	}

	req, err := p.BuildPurgeRequest(urls)
	if err != nil {
		return Outcome{Reason: ReasonProviderError, Detail: err.Error()}
	}
	if lim := g.limiters[provider]; lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return Outcome{Reason: ReasonProviderError, Detail: err.Error()}
		}
	}
	submit := func() error { return p.Submit(ctx, req) }
	if cb := g.breakers[provider]; cb != nil {
		err = cb.Execute(submit, func(error) bool { return ctx.Err() != nil })
	} else {
		err = submit()
	}
	if err != nil {
		return Outcome{Reason: ReasonProviderError, Detail: err.Error()}
	}
	return Outcome{Success: true}
}

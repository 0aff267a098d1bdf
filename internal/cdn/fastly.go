// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cdn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultFastlyAPI is the Fastly API root.
const DefaultFastlyAPI = "https://api.fastly.com"

// FastlyProvider purges single URLs; one API call per target.
type FastlyProvider struct {
	APIBase   string
	ServiceID string
	APIKey    string
	Client    *http.Client
}

// NewFastly builds a provider from cfg credentials.
func NewFastly(cfg ProviderConfig, apiBase string, client *http.Client) *FastlyProvider {
	if apiBase == "" {
		apiBase = DefaultFastlyAPI
	}
	return &FastlyProvider{
		APIBase:   strings.TrimRight(apiBase, "/"),
		ServiceID: cfg.Credential(CredServiceID),
		APIKey:    cfg.Credential(CredAPIKey),
		Client:    client,
	}
}

func (p *FastlyProvider) Name() string { return Fastly }

// BuildPurgeRequest strips the scheme: Fastly addresses a purge as host/path.
func (p *FastlyProvider) BuildPurgeRequest(urls []string) (PurgeRequest, error) {
	if p.APIKey == "" {
		return PurgeRequest{}, missingCredentials(Fastly, CredAPIKey)
	}
	targets := make([]string, 0, len(urls))
	for _, u := range urls {
		target := u
		if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
			target = parsed.Host + parsed.EscapedPath()
		}
		targets = append(targets, strings.TrimLeft(target, "/"))
	}
	return PurgeRequest{Provider: Fastly, Targets: targets}, nil
}

// Submit purges every target. All targets are attempted; failures are joined.
func (p *FastlyProvider) Submit(ctx context.Context, req PurgeRequest) error {
	var errs []error
	for _, target := range req.Targets {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := p.purgeOne(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *FastlyProvider) purgeOne(ctx context.Context, target string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.APIBase+"/purge/"+target, nil)
	if err != nil {
		return fmt.Errorf("build purge request: %w", err)
	}
	httpReq.Header.Set("Fastly-Key", p.APIKey)
	httpReq.Header.Set("Accept", "application/json")
	if p.ServiceID != "" {
		httpReq.Header.Set("Fastly-Service-Id", p.ServiceID)
	}

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("fastly purge %s: %w", target, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxAPIResponse))

	if resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Provider: Fastly, Status: resp.StatusCode, Messages: []string{target}}
	}
	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cdn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultCloudflareAPI is the Cloudflare v4 API root.
const DefaultCloudflareAPI = "https://api.cloudflare.com/client/v4"

// cloudflareBatch is the per-request URL limit of purge_cache.
const cloudflareBatch = 30

// maxAPIResponse bounds how much of a provider response body is read.
const maxAPIResponse = 1 << 20

// CloudflareProvider purges by URL through the zone purge_cache endpoint.
type CloudflareProvider struct {
	APIBase string
	ZoneID  string
	Token   string
	Client  *http.Client
}

// NewCloudflare builds a provider from cfg credentials.
func NewCloudflare(cfg ProviderConfig, apiBase string, client *http.Client) *CloudflareProvider {
	if apiBase == "" {
		apiBase = DefaultCloudflareAPI
	}
	return &CloudflareProvider{
		APIBase: strings.TrimRight(apiBase, "/"),
		ZoneID:  cfg.Credential(CredZoneID),
		Token:   cfg.Credential(CredAPIToken),
		Client:  client,
	}
}

func (p *CloudflareProvider) Name() string { return Cloudflare }

func (p *CloudflareProvider) BuildPurgeRequest(urls []string) (PurgeRequest, error) {
	if p.ZoneID == "" || p.Token == "" {
		return PurgeRequest{}, missingCredentials(Cloudflare, CredZoneID, CredAPIToken)
	}
	return PurgeRequest{Provider: Cloudflare, Targets: append([]string(nil), urls...)}, nil
}

type cloudflarePurgeBody struct {
	Files []string `json:"files"`
}

type cloudflareResponse struct {
	Success bool `json:"success"`
	Errors  []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (p *CloudflareProvider) Submit(ctx context.Context, req PurgeRequest) error {
	for start := 0; start < len(req.Targets); start += cloudflareBatch {
		end := min(start+cloudflareBatch, len(req.Targets))
		if err := p.submitBatch(ctx, req.Targets[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *CloudflareProvider) submitBatch(ctx context.Context, files []string) error {
	body, err := json.Marshal(cloudflarePurgeBody{Files: files})
	if err != nil {
		return fmt.Errorf("encode purge body: %w", err)
	}
	endpoint := fmt.Sprintf("%s/zones/%s/purge_cache", p.APIBase, p.ZoneID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build purge request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.Token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("cloudflare purge: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponse))
	if err != nil {
		return fmt.Errorf("read cloudflare response: %w", err)
	}
	var decoded cloudflareResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return &APIError{Provider: Cloudflare, Status: resp.StatusCode, Messages: []string{"malformed response"}}
	}
	if resp.StatusCode >= http.StatusMultipleChoices || !decoded.Success {
		apiErr := &APIError{Provider: Cloudflare, Status: resp.StatusCode}
		for _, e := range decoded.Errors {
			apiErr.Messages = append(apiErr.Messages, fmt.Sprintf("%d %s", e.Code, e.Message))
		}
		return apiErr
	}
	return nil
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cdn

import (
	"net/http"
	"time"

	"github.com/ManuGH/abrcast/internal/platform/httpx"
)

// ProviderOptions overrides defaults used by DefaultProviders.
type ProviderOptions struct {
	HTTPClient    *http.Client
	Timeout       time.Duration
	CloudflareAPI string
	FastlyAPI     string
}

// DefaultProviders returns every built-in backend. Backends without a table
// entry are still registered so a purge reports missing credentials rather
// than an unsupported provider.
func DefaultProviders(table Table, opts ProviderOptions) []Provider {
	client := opts.HTTPClient
	if client == nil {
		client = httpx.NewClient(httpx.Options{Timeout: opts.Timeout})
	}
	cf, _ := table.Lookup(Cloudflare)
	front, _ := table.Lookup(CloudFront)
	fastly, _ := table.Lookup(Fastly)
	return []Provider{
		NewCloudflare(cf, opts.CloudflareAPI, client),
		NewCloudFront(front),
		NewFastly(fastly, opts.FastlyAPI, client),
	}
}

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package cdn resolves stored media paths to public delivery URLs and submits
// cache purges to interchangeable delivery providers.
package cdn

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Provider names known to the default registry.
const (
	Cloudflare = "cloudflare"
	CloudFront = "cloudfront"
	Fastly     = "fastly"
)

// Credential keys carried in ProviderConfig.Credentials.
const (
	CredZoneID          = "zone_id"
	CredAPIToken        = "api_token"
	CredDistributionID  = "distribution_id"
	CredRegion          = "region"
	CredAccessKeyID     = "access_key_id"
	CredSecretAccessKey = "secret_access_key"
	CredServiceID       = "service_id"
	CredAPIKey          = "api_key"
)

// Reason classifies an unsuccessful purge.
type Reason string

const (
	ReasonUnsupportedProvider Reason = "unsupported_provider"
	ReasonProviderError       Reason = "provider_error"
)

// ErrMissingCredentials is returned by providers that cannot authenticate.
var ErrMissingCredentials = errors.New("cdn: missing provider credentials")

// Outcome is the result of one purge call.
type Outcome struct {
	Success bool   `json:"success"`
	Reason  Reason `json:"reason,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// ProviderConfig is one entry of the provider table.
type ProviderConfig struct {
	Name        string
	BaseURL     string
	Credentials map[string]string
}

// Credential returns a trimmed credential value, or "".
func (c ProviderConfig) Credential(key string) string {
	return strings.TrimSpace(c.Credentials[key])
}

// Table is an immutable set of provider configs keyed by name.
// Safe for concurrent reads.
type Table struct {
	entries map[string]ProviderConfig
}

// NewTable copies configs into a new Table. Later entries win on duplicate names.
func NewTable(configs ...ProviderConfig) Table {
	t := Table{entries: make(map[string]ProviderConfig, len(configs))}
	for _, c := range configs {
		creds := make(map[string]string, len(c.Credentials))
		for k, v := range c.Credentials {
			creds[k] = v
		}
		c.Credentials = creds
		t.entries[c.Name] = c
	}
	return t
}

// Lookup returns the config registered under name.
func (t Table) Lookup(name string) (ProviderConfig, bool) {
	c, ok := t.entries[name]
	return c, ok
}

// Names returns the registered provider names in sorted order.
func (t Table) Names() []string {
	out := make([]string, 0, len(t.entries))
	for name := range t.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PurgeRequest is the provider-specific purge payload for one call.
type PurgeRequest struct {
	Provider string
	// Targets are the provider-normalized purge targets in submission order.
	Targets []string
}

// Provider is implemented by every delivery backend.
type Provider interface {
	Name() string
	// BuildPurgeRequest converts resolved URLs into the provider's targets.
	BuildPurgeRequest(urls []string) (PurgeRequest, error)
	// Submit sends req. It does not retry.
	Submit(ctx context.Context, req PurgeRequest) error
}

// APIError reports a non-successful provider API response.
type APIError struct {
	Provider string
	Status   int
	Messages []string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "; ")
	if msg == "" {
		msg = "request rejected"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}

func missingCredentials(provider string, keys ...string) error {
	return fmt.Errorf("%w: %s requires %s", ErrMissingCredentials, provider, strings.Join(keys, " and "))
}

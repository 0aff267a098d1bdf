// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cdn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// DefaultCloudFrontRegion is used when no region credential is set.
const DefaultCloudFrontRegion = "us-east-1"

// InvalidationAPI is the subset of the CloudFront client used for purges.
type InvalidationAPI interface {
	CreateInvalidation(ctx context.Context, in *cloudfront.CreateInvalidationInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateInvalidationOutput, error)
}

// CloudFrontProvider creates distribution invalidations for URL paths.
type CloudFrontProvider struct {
	DistributionID string
	Client         InvalidationAPI
	Now            func() time.Time
}

// NewCloudFront builds a provider with a static-credential CloudFront client.
// A nil client is kept when access keys are absent; BuildPurgeRequest then fails.
func NewCloudFront(cfg ProviderConfig) *CloudFrontProvider {
	p := &CloudFrontProvider{DistributionID: cfg.Credential(CredDistributionID), Now: time.Now}

	keyID, secret := cfg.Credential(CredAccessKeyID), cfg.Credential(CredSecretAccessKey)
	if keyID == "" || secret == "" {
		return p
	}
	region := cfg.Credential(CredRegion)
	if region == "" {
		region = DefaultCloudFrontRegion
	}
	opts := cloudfront.Options{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(keyID, secret, ""),
	}
	otelaws.AppendMiddlewares(&opts.APIOptions)
	p.Client = cloudfront.New(opts)
	return p
}

func (p *CloudFrontProvider) Name() string { return CloudFront }

// BuildPurgeRequest reduces URLs to distribution paths.
func (p *CloudFrontProvider) BuildPurgeRequest(urls []string) (PurgeRequest, error) {
	if p.DistributionID == "" || p.Client == nil {
		return PurgeRequest{}, missingCredentials(CloudFront, CredDistributionID, CredAccessKeyID+"/"+CredSecretAccessKey)
	}
	seen := make(map[string]struct{}, len(urls))
	paths := make([]string, 0, len(urls))
	for _, u := range urls {
		path := u
		if parsed, err := url.Parse(u); err == nil {
			path = parsed.EscapedPath()
		}
		path = "/" + strings.TrimLeft(path, "/")
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}
		paths = append(paths, path)
	}
	return PurgeRequest{Provider: CloudFront, Targets: paths}, nil
}

func (p *CloudFrontProvider) Submit(ctx context.Context, req PurgeRequest) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	out, err := p.Client.CreateInvalidation(ctx, &cloudfront.CreateInvalidationInput{
		DistributionId: aws.String(p.DistributionID),
		InvalidationBatch: &types.InvalidationBatch{
			CallerReference: aws.String(CallerReference(req.Targets, now())),
			Paths: &types.Paths{
				Quantity: aws.Int32(int32(len(req.Targets))),
				Items:    req.Targets,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("cloudfront invalidation: %w", err)
	}
	if out == nil || out.Invalidation == nil {
		return &APIError{Provider: CloudFront, Messages: []string{"empty invalidation response"}}
	}
	return nil
}

// CallerReference identifies an invalidation batch: a digest of the path list
// plus the submission second, so identical resubmissions within a second collapse.
func CallerReference(paths []string, at time.Time) string {
	sum := sha256.Sum256([]byte(strings.Join(paths, "\n")))
	return fmt.Sprintf("abrcast-%s-%d", hex.EncodeToString(sum[:8]), at.UTC().Unix())
}

// Package awsconf builds the single aws.Config used by every AWS client
// the CLI constructs, binding region/profile at construction time the
// way the teacher's config.go resolves its own settings once and passes
// them down — never a global client, per spec.md section 9.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/dnvriend/aws-primitives-tool/internal/config"
)

// Load resolves the ambient AWS credential chain (environment, shared
// config/credentials files, SSO, IMDS) scoped to the region and profile
// the CLI was given; credential/region resolution internals are the
// out-of-scope "plumbing" named in spec.md section 1 — this function
// simply calls the SDK's own resolver.
func Load(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return awsCfg, nil
}

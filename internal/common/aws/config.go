// internal/common/aws/config.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

// Settings selects the region and retry budget shared by the SNS and SES clients.
type Settings struct {
	Region      string
	MaxAttempts int
}

// LoadConfig resolves credentials once so both clients share them.
func LoadConfig(ctx context.Context, s Settings) (aws.Config, error) {
	if s.Region == "" {
		return aws.Config{}, fmt.Errorf("aws region is empty")
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = 3
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(s.Region),
		config.WithRetryMaxAttempts(s.MaxAttempts),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

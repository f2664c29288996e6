// SPDX-License-Identifier: MPL-2.0

package cloud

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/cenkalti/backoff/v4"
)

const defaultPartition = "aws"

type (
	// Settings selects the account, region and endpoint for Connect.
	Settings struct {
		Region  string
		Profile string
		// EndpointURL replaces every service endpoint (LocalStack).
		EndpointURL string
		// ArtifactBucket enables S3 staging of archives.
		ArtifactBucket string
		// Credentials overrides the SDK default credential chain.
		Credentials aws.CredentialsProvider
	}

	// Client runs lambkin's Lambda, EventBridge and S3 workflows.
	Client struct {
		apis       APIs
		region     string
		bucket     string
		newBackOff func() backoff.BackOff

		mu       sync.Mutex
		identity *Identity
	}
)

// StaticCredentials returns a provider for fixed keys, e.g. LocalStack's "test"/"test".
func StaticCredentials(accessKeyID, secretAccessKey string) aws.CredentialsProvider {
	return credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")
}

// Connect loads the shared AWS configuration and builds SDK-backed clients.
func Connect(ctx context.Context, s Settings) (*Client, error) {
	var opts []func(*awsConfig.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, awsConfig.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, awsConfig.WithSharedConfigProfile(s.Profile))
	}
	if s.EndpointURL != "" {
		opts = append(opts, awsConfig.WithBaseEndpoint(s.EndpointURL))
	}
	if s.Credentials != nil {
		opts = append(opts, awsConfig.WithCredentialsProvider(s.Credentials))
	}

	cfg, err := awsConfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}
	if cfg.Region == "" {
		return nil, ErrNoRegion
	}

	apis := APIs{
		Functions: lambda.NewFromConfig(cfg),
		Events:    eventbridge.NewFromConfig(cfg),
		Identity:  sts.NewFromConfig(cfg),
	}
	if s.ArtifactBucket != "" {
		s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			// Custom endpoints rarely serve virtual-hosted buckets.
			o.UsePathStyle = s.EndpointURL != ""
		})
		apis.Uploader = manager.NewUploader(s3Client)
	}

	slog.Debug("aws clients ready", "region", cfg.Region, "profile", s.Profile, "endpoint", s.EndpointURL)
	return NewClient(apis, cfg.Region, s.ArtifactBucket), nil
}

// NewClient wraps already constructed service clients.
func NewClient(apis APIs, region, bucket string) *Client {
	return &Client{
		apis:       apis,
		region:     region,
		bucket:     bucket,
		newBackOff: defaultBackOff,
	}
}

// Identity resolves the caller's partition and account once per Client.
func (c *Client) Identity(ctx context.Context) (Identity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity != nil {
		return *c.identity, nil
	}
	if c.region == "" {
		return Identity{}, ErrNoRegion
	}

	out, err := c.apis.Identity.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}

	id := Identity{Partition: defaultPartition, Region: c.region, AccountID: aws.ToString(out.Account)}
	if parsed, err := arn.Parse(aws.ToString(out.Arn)); err == nil && parsed.Partition != "" {
		id.Partition = parsed.Partition
	}
	c.identity = &id
	return id, nil
}

// defaultBackOff covers IAM propagation, which usually settles within ten seconds.
func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 8 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

// retry runs fn until it succeeds, fails with a non-retryable error, or the
// backoff policy gives up.
func (c *Client) retry(ctx context.Context, op string, retryable func(error) bool, fn func() error) error {
	return backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(c.newBackOff(), ctx), func(err error, wait time.Duration) {
		slog.Info("retrying", "operation", op, "wait", wait, "reason", err)
	})
}

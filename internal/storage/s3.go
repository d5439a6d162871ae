package storage

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yourorg/spaces-transfer/internal/spaces"
)

// SigningRegion is the region the SDK signs requests with. Spaces routes by
// endpoint host and accepts any AWS region name here.
const SigningRegion = "us-east-1"

type options struct {
	endpoint  string
	pathStyle bool
}

// Option customizes NewS3.
type Option func(*options)

// WithEndpoint overrides the region endpoint, e.g. for MinIO or LocalStack.
func WithEndpoint(url string) Option {
	return func(o *options) { o.endpoint = url }
}

// WithPathStyle forces path-style addressing (bucket in the path, not the host).
func WithPathStyle(v bool) Option {
	return func(o *options) { o.pathStyle = v }
}

// NewS3 creates an S3 client pointed at the Spaces endpoint of region with
// static credentials. Requests are attempted once; the SDK never retries.
// It performs no network I/O.
func NewS3(ctx context.Context, creds spaces.Credentials, region spaces.Region, opts ...Option) (*s3.Client, error) {
	o := options{endpoint: region.Endpoint()}
	for _, fn := range opts {
		fn(&o)
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(SigningRegion),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, "")),
		config.WithRetryMaxAttempts(1),
	)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(cfg, func(so *s3.Options) {
		if o.endpoint != "" {
			so.BaseEndpoint = aws.String(o.endpoint)
		}
		so.UsePathStyle = o.pathStyle
	}), nil
}

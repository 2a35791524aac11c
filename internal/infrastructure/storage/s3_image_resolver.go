// Package storage resolves master product image references held in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	infraconfig "github.com/santi-naranjo/catalog-ai/internal/infrastructure/config"
	"go.uber.org/zap"
)

const defaultPresignTTL = time.Hour

// S3ImageResolver turns an object key stored as a master image into a
// presigned GET URL. Values that already carry a scheme are returned as is,
// except s3://bucket/key which is presigned against that bucket.
// It works with any S3-compatible store (AWS S3, MinIO, RustFS).
type S3ImageResolver struct {
	presignClient *s3.PresignClient
	bucket        string
	presignTTL    time.Duration
	logger        *zap.Logger
}

// S3ImageResolverOption configures an S3ImageResolver
type S3ImageResolverOption func(*S3ImageResolver)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) S3ImageResolverOption {
	return func(r *S3ImageResolver) {
		r.logger = logger
	}
}

// WithPresignTTL overrides how long generated URLs stay valid
func WithPresignTTL(d time.Duration) S3ImageResolverOption {
	return func(r *S3ImageResolver) {
		r.presignTTL = d
	}
}

// NewS3ImageResolver creates a resolver from configuration
func NewS3ImageResolver(ctx context.Context, cfg *infraconfig.StorageConfig, opts ...S3ImageResolverOption) (*S3ImageResolver, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	if cfg.Endpoint != "" {
		if _, err := url.ParseRequestURI(cfg.Endpoint); err != nil {
			return nil, fmt.Errorf("invalid storage endpoint: %w", err)
		}
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	r := &S3ImageResolver{
		presignClient: s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		presignTTL:    cfg.PresignTTL,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.presignTTL <= 0 {
		r.presignTTL = defaultPresignTTL
	}
	return r, nil
}

// ResolveImageURL implements the image resolver port
func (r *S3ImageResolver) ResolveImageURL(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}

	bucket, key := r.bucket, strings.TrimPrefix(ref, "/")
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if u.Scheme != "s3" {
			return ref, nil
		}
		bucket, key = u.Host, strings.TrimPrefix(u.Path, "/")
	}
	if bucket == "" || key == "" {
		return "", fmt.Errorf("invalid image reference %q", ref)
	}

	req, err := r.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(r.presignTTL))
	if err != nil {
		return "", fmt.Errorf("failed to presign image %s: %w", key, err)
	}
	r.logger.Debug("Presigned master image", zap.String("bucket", bucket), zap.String("key", key))
	return req.URL, nil
}

// Bucket returns the default bucket
func (r *S3ImageResolver) Bucket() string {
	return r.bucket
}

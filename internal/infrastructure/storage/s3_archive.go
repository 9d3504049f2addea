// Package storage archives raw webhook payloads to object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const payloadContentType = "application/json"

// S3PayloadArchive writes webhook bodies to an S3-compatible bucket
// (AWS S3, MinIO, RustFS).
type S3PayloadArchive struct {
	client  *s3.Client
	bucket  string
	timeout time.Duration
	logger  *zap.Logger
}

// S3PayloadArchiveOption is a functional option for S3PayloadArchive
type S3PayloadArchiveOption func(*S3PayloadArchive)

// WithLogger sets the archive logger
func WithLogger(logger *zap.Logger) S3PayloadArchiveOption {
	return func(a *S3PayloadArchive) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewS3PayloadArchive builds an archive from configuration. Static
// credentials are used when both keys are set, otherwise the default AWS
// credential chain applies.
func NewS3PayloadArchive(ctx context.Context, cfg config.ArchiveConfig, opts ...S3PayloadArchiveOption) (*S3PayloadArchive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid archive endpoint %q", cfg.Endpoint)
		}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Most S3-compatible stores reject the newer default checksums
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
	})

	archive := &S3PayloadArchive{
		client:  client,
		bucket:  cfg.Bucket,
		timeout: cfg.Timeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	if archive.timeout <= 0 {
		archive.timeout = 5 * time.Second
	}
	return archive, nil
}

// Store uploads body under key
func (a *S3PayloadArchive) Store(ctx context.Context, key string, body []byte) error {
	if key == "" {
		return errors.New("archive key is required")
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(payloadContentType),
	})
	if err != nil {
		return fmt.Errorf("failed to archive payload %s: %w", key, err)
	}

	a.logger.Debug("Archived webhook payload",
		zap.String("bucket", a.bucket),
		zap.String("key", key),
		zap.Int("bytes", len(body)),
	)
	return nil
}

// Bucket returns the target bucket name
func (a *S3PayloadArchive) Bucket() string {
	return a.bucket
}

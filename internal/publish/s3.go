// Package publish uploads generated artifacts to S3-compatible storage.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrNoCredentials is returned when no AWS credentials are configured.
var ErrNoCredentials = errors.New("AWS credentials not set (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)")

// putObjectAPI is the subset of *s3.Client the publisher needs.
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures an S3Publisher.
type S3Config struct {
	Bucket string
	Prefix string
	Region string

	// Endpoint overrides the S3 endpoint for compatible stores (MinIO, R2).
	Endpoint string

	// PathStyle forces path-style addressing.
	PathStyle bool

	// Timeout bounds each upload. Default: 30s.
	Timeout time.Duration
}

// S3Publisher stores artifacts in an S3 bucket.
//
// Example usage:
//
//	pub, err := publish.NewS3Publisher(publish.S3Config{Bucket: "my-bucket", Prefix: "routes/"})
//	p, err := pipeline.New(pipeline.Options{Publisher: pub})
type S3Publisher struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	timeout time.Duration
	now     func() time.Time
}

// NewS3Publisher creates a publisher using credentials from the standard
// AWS environment variables.
func NewS3Publisher(cfg S3Config) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("publish: bucket is required")
	}
	if os.Getenv("AWS_ACCESS_KEY_ID") == "" || os.Getenv("AWS_SECRET_ACCESS_KEY") == "" {
		return nil, ErrNoCredentials
	}
	if cfg.Region == "" {
		cfg.Region = os.Getenv("AWS_REGION")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  aws.NewCredentialsCache(aws.CredentialsProviderFunc(envCredentials)),
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newS3Publisher(s3.New(opts), cfg), nil
}

func newS3Publisher(client putObjectAPI, cfg S3Config) *S3Publisher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &S3Publisher{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
		timeout: cfg.Timeout,
		now:     time.Now,
	}
}

func envCredentials(context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		Source:          "EnvironmentVariables",
	}, nil
}

// Key returns the object key an artifact is stored under.
func (p *S3Publisher) Key(name string) string {
	return path.Join(p.prefix, filepath.Base(name))
}

// Publish uploads data as the object for name.
func (p *S3Publisher) Publish(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(p.Key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(name)),
		Metadata: map[string]string{
			"generator":    "saferoute",
			"generated-at": p.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 upload failed: %w", err)
	}
	return nil
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".go":
		return "text/x-go; charset=utf-8"
	case ".ts":
		return "application/typescript; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

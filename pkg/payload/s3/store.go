// Package s3 provides an S3-backed content store implementation.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/glyphcache/pkg/payload"
)

// Config holds configuration for the S3 content store.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string `mapstructure:"bucket"`

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string `mapstructure:"region"`

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible
	// services).
	Endpoint string `mapstructure:"endpoint"`

	// KeyPrefix is prepended to all content keys (e.g. "emoji/").
	// Should end with "/" if non-empty.
	KeyPrefix string `mapstructure:"key_prefix"`

	// ForcePathStyle forces path-style addressing (required for
	// Localstack/MinIO).
	ForcePathStyle bool `mapstructure:"force_path_style"`
}

// Store is an S3-backed implementation of payload.ContentStore.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string

	mu     sync.RWMutex
	closed bool
}

// New creates a new S3 content store with an existing client.
func New(client *s3.Client, cfg Config) *Store {
	return &Store{
		client:    client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}
}

// NewFromConfig creates a new S3 content store by building an S3 client
// from the AWS SDK default credential chain.
func NewFromConfig(ctx context.Context, cfg Config) (*Store, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return New(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// fullKey returns the full S3 object key for a content key.
func (s *Store) fullKey(key string) string {
	return s.keyPrefix + key
}

// ReadContent returns the bytes stored under key.
func (s *Store) ReadContent(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, payload.ErrStoreClosed
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, payload.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get object %q: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %q: %w", key, err)
	}
	return data, nil
}

// WriteContent stores bytes under key.
func (s *Store) WriteContent(ctx context.Context, key string, data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return payload.ErrStoreClosed
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", key, err)
	}
	return nil
}

// DeleteContent removes the entry. S3 deletes are idempotent, so deleting
// a missing key is not an error.
func (s *Store) DeleteContent(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return payload.ErrStoreClosed
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

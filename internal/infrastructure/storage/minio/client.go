// Package minio resolves evidence document objects to presigned URLs.
package minio

import (
	"context"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
)

// ObjectAPI is the subset of *minio.Client CaseLens uses.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinIOConfig holds connection and presigning settings.
type MinIOConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	DocumentBucket  string        `mapstructure:"document_bucket"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
	VerifyObjects   bool          `mapstructure:"verify_objects"`
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DocumentBucket == "" {
		cfg.DocumentBucket = "caselens-documents"
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 15 * time.Minute
	}
	// S3 rejects presigned URLs valid for more than seven days.
	if cfg.PresignExpiry > 7*24*time.Hour {
		cfg.PresignExpiry = 7 * 24 * time.Hour
	}
}

// Client wraps the object API with the configured bucket.
type Client struct {
	api    ObjectAPI
	config MinIOConfig
	logger logging.Logger
}

// NewClient connects and checks that the document bucket exists.
func NewClient(ctx context.Context, cfg MinIOConfig, log logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "minio endpoint is required")
	}
	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidConfig, "create minio client")
	}
	c := NewClientFrom(api, cfg, log)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.Check(checkCtx); err != nil {
		return nil, err
	}
	c.logger.Info("minio client connected",
		logging.String("endpoint", cfg.Endpoint),
		logging.String("bucket", c.config.DocumentBucket),
		logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

// NewClientFrom wraps an existing API implementation.
func NewClientFrom(api ObjectAPI, cfg MinIOConfig, log logging.Logger) *Client {
	applyDefaults(&cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, config: cfg, logger: log.Named("minio")}
}

// Bucket is the default document bucket.
func (c *Client) Bucket() string { return c.config.DocumentBucket }

func (c *Client) Name() string { return "minio" }

// Check fails when the document bucket is unreachable or missing.
func (c *Client) Check(ctx context.Context) error {
	ok, err := c.api.BucketExists(ctx, c.config.DocumentBucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "minio unreachable")
	}
	if !ok {
		return errors.New(errors.ErrCodeServiceUnavailable, "minio bucket "+c.config.DocumentBucket+" missing")
	}
	return nil
}

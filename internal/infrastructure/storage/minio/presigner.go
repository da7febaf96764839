package minio

import (
	"context"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/CaseLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLens/pkg/errors"
)

// ObjectRef locates one object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// ParseStorageKey accepts "s3://bucket/key", "minio://bucket/key" or a bare
// key, which resolves against defaultBucket.
func ParseStorageKey(storageKey, defaultBucket string) (ObjectRef, error) {
	key := strings.TrimSpace(storageKey)
	for _, scheme := range []string{"s3://", "minio://"} {
		if strings.HasPrefix(key, scheme) {
			rest := strings.TrimPrefix(key, scheme)
			bucket, object, ok := strings.Cut(rest, "/")
			if !ok || bucket == "" || object == "" {
				return ObjectRef{}, errors.New(errors.ErrCodeDocumentURLFailed, "malformed storage key "+storageKey)
			}
			return ObjectRef{Bucket: bucket, Key: object}, nil
		}
	}
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return ObjectRef{}, errors.New(errors.ErrCodeDocumentURLFailed, "empty storage key")
	}
	return ObjectRef{Bucket: defaultBucket, Key: key}, nil
}

// ResolvePageURL presigns a GET for the page object behind storageKey.
func (c *Client) ResolvePageURL(ctx context.Context, storageKey string) (string, error) {
	ref, err := ParseStorageKey(storageKey, c.config.DocumentBucket)
	if err != nil {
		return "", err
	}

	if c.config.VerifyObjects {
		if _, err := c.api.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{}); err != nil {
			if minio.ToErrorResponse(err).Code == "NoSuchKey" {
				return "", errors.New(errors.ErrCodeDocumentNotFound, "document object not found").WithDetail(ref.Bucket + "/" + ref.Key)
			}
			return "", errors.Wrap(err, errors.ErrCodeDocumentURLFailed, "stat document object")
		}
	}

	params := url.Values{}
	params.Set("response-content-disposition", "inline")
	u, err := c.api.PresignedGetObject(ctx, ref.Bucket, ref.Key, c.config.PresignExpiry, params)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeDocumentURLFailed, "presign document object")
	}
	c.logger.Debug("presigned document page", logging.String("bucket", ref.Bucket), logging.String("key", ref.Key))
	return u.String(), nil
}

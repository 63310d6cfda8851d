// ABOUTME: MinIO publisher uploading report artifacts to an S3-compatible bucket.
// ABOUTME: Ensures the bucket exists and sets content types by file extension.

package publish

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// MinioPublisher uploads report artifacts to an S3-compatible bucket under
// reports/{date}/.
type MinioPublisher struct {
	client *minio.Client
	bucket string
	logger *logrus.Logger
}

// NewMinioPublisher connects to the endpoint and makes sure the bucket exists.
func NewMinioPublisher(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, logger *logrus.Logger) (*MinioPublisher, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return &MinioPublisher{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

// Name returns the publisher name.
func (p *MinioPublisher) Name() string {
	return "minio"
}

// Publish uploads each artifact to reports/{date}/{filename}.
func (p *MinioPublisher) Publish(ctx context.Context, date string, paths []string) error {
	for _, path := range paths {
		key := fmt.Sprintf("reports/%s/%s", date, filepath.Base(path))
		_, err := p.client.FPutObject(ctx, p.bucket, key, path, minio.PutObjectOptions{
			ContentType: contentTypeFor(path),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		p.logger.WithFields(logrus.Fields{
			"bucket": p.bucket,
			"key":    key,
		}).Info("Uploaded report artifact")
	}
	return nil
}

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".csv":
		return "text/csv"
	case ".md":
		return "text/markdown"
	default:
		return "application/octet-stream"
	}
}

package s3

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/garala-cf/garala/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const objectPrefix = "listings/"

// Storage keeps listing images in an S3 compatible bucket.
type Storage struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// NewStorage connects to endpoint and creates bucket when it is missing.
func NewStorage(ctx context.Context, endpoint, accessKey, secretKey, bucket string, useSSL bool, log *logger.Logger) (*Storage, error) {
	log = log.Named("S3Storage")
	log.Info("Initializing object storage", zap.String("endpoint", endpoint), zap.String("bucket", bucket), zap.Bool("use_ssl", useSSL))

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", endpoint, err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to make bucket %s: %w", bucket, err)
		}
		log.Info("Bucket created", zap.String("bucket", bucket))
	}

	return &Storage{client: client, bucket: bucket, logger: log}, nil
}

// objectKey keeps the extension of fileName under a random name.
func objectKey(fileName string) string {
	return objectPrefix + uuid.NewString() + strings.ToLower(filepath.Ext(fileName))
}

// Upload stores data and returns its public URL, endpoint/bucket/key.
func (s *Storage) Upload(ctx context.Context, fileName string, data []byte) (string, error) {
	key := objectKey(fileName)
	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: http.DetectContentType(data),
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload object %s to bucket %s: %w", key, s.bucket, err)
	}
	s.logger.Debug("Object uploaded", zap.String("key", info.Key), zap.Int64("size", info.Size))

	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucket, key), nil
}

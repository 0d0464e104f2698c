// Package minio provides an object storage backend for finished deck
// artifacts, for deployments where workers and the API do not share a
// filesystem.
package minio

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aliskhannn/deck-generator/internal/config"
)

// Storage stores objects in a single MinIO bucket.
type Storage struct {
	client *minio.Client
	bucket string
}

// NewStorage connects to MinIO and ensures the bucket exists.
func NewStorage(ctx context.Context, cfg config.S3) (*Storage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.BucketName, err)
		}
	}

	return &Storage{client: client, bucket: cfg.BucketName}, nil
}

// Save uploads the object under subdir/filename and returns its key.
func (s *Storage) Save(ctx context.Context, subdir, filename string, src io.Reader) (string, error) {
	key := path.Join(subdir, filename)

	_, err := s.client.PutObject(ctx, s.bucket, key, src, -1, minio.PutObjectOptions{
		ContentType: "application/zip",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}

	return key, nil
}

// Load returns a reader over the object's bytes.
func (s *Storage) Load(ctx context.Context, subdir, filename string) (io.ReadCloser, error) {
	key := path.Join(subdir, filename)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}

	return obj, nil
}

// Delete removes the object from the bucket.
func (s *Storage) Delete(ctx context.Context, subdir, filename string) error {
	key := path.Join(subdir, filename)

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}

	return nil
}

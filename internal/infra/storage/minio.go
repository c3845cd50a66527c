package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	domain "github.com/bryanwahyu/deepfake-detector/internal/domain/detection"
)

// DefaultPreviewExpiry is how long presigned preview URLs stay valid.
const DefaultPreviewExpiry = 24 * time.Hour

type Store struct {
	client        *minio.Client
	bucketName    string
	region        string
	previewExpiry time.Duration
}

// New buat koneksi MinIO
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool, previewExpiry time.Duration) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	// pastikan bucket ada
	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	if previewExpiry <= 0 {
		previewExpiry = DefaultPreviewExpiry
	}
	return &Store{client: cli, bucketName: bucket, region: region, previewExpiry: previewExpiry}, nil
}

// Put implementasi MediaStore: upload bytes, return presigned GET URL.
func (s *Store) Put(ctx context.Context, key string, media *domain.Media) (string, error) {
	data := media.Data
	contentType := media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	// bucket private, jadi kasih presigned URL untuk preview
	u, err := s.client.PresignedGetObject(ctx, s.bucketName, key, s.previewExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// Ping checks the bucket is reachable; used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

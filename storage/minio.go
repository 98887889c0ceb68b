package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/Sullygrrr/digger/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and makes sure the bucket exists.
func InitMinio(cfg *config.Config) error {
	log.Printf("Connecting to MinIO at %s, bucket %s", cfg.MinioEndpoint, cfg.MinioBucket)

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		err = client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.Printf("Bucket %s created", cfg.MinioBucket)
	}

	minioClient = client
	return nil
}

// MediaStore wraps the bucket operations the application needs: uploads,
// existence checks and URL resolution.
type MediaStore struct {
	bucket    string
	publicURL string
}

// NewMediaStore creates a MediaStore for the configured bucket. InitMinio
// must have been called first.
func NewMediaStore(cfg *config.Config) *MediaStore {
	return &MediaStore{
		bucket:    cfg.MinioBucket,
		publicURL: strings.TrimRight(cfg.MinioPublicURL, "/"),
	}
}

// Upload stores an object and returns its key.
func (s *MediaStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}
	_, err := minioClient.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return key, nil
}

// FileExists reports whether the object behind key is fetchable. A missing
// object is (false, nil); anything else wrong with the store is an error.
func (s *MediaStore) FileExists(ctx context.Context, key string) (bool, error) {
	if minioClient == nil {
		return false, fmt.Errorf("MinIO client not initialized")
	}
	_, err := minioClient.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return true, nil
}

// Remove deletes an object. Used to clean up after failed uploads.
func (s *MediaStore) Remove(ctx context.Context, key string) error {
	if minioClient == nil {
		return fmt.Errorf("MinIO client not initialized")
	}
	if err := minioClient.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

// URL resolves an object key to a servable URL. With no public base URL
// configured, a presigned GET link valid for 24 hours is issued.
func (s *MediaStore) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", nil
	}
	if s.publicURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key), nil
	}
	if minioClient == nil {
		return "", fmt.Errorf("MinIO client not initialized")
	}
	u, err := minioClient.PresignedGetObject(ctx, s.bucket, key, 24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return u.String(), nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/akozyrev/transcript-analyzer/pkg/config"
)

// MinIOStore writes export artifacts to a MinIO bucket, one object per
// video, for deployments where downstream consumers read from S3.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore creates a MinIO-backed export store and ensures the bucket
// exists.
func NewMinIOStore(cfg *config.StorageConfig) (*MinIOStore, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinIOStore{
		client: minioClient,
		bucket: cfg.BucketName,
	}

	if err := store.ensureBucket(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return store, nil
}

func (m *MinIOStore) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

func (m *MinIOStore) Save(ctx context.Context, videoID string, data []byte) (string, error) {
	objectName := m.objectName(videoID)
	_, err := m.client.PutObject(ctx, m.bucket, objectName, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload export: %w", err)
	}
	return fmt.Sprintf("%s/%s", m.bucket, objectName), nil
}

func (m *MinIOStore) Location(ctx context.Context, videoID string) (string, error) {
	objectName := m.objectName(videoID)
	_, err := m.client.StatObject(ctx, m.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat export object: %w", err)
	}
	return fmt.Sprintf("%s/%s", m.bucket, objectName), nil
}

func (m *MinIOStore) objectName(videoID string) string {
	return videoID + ".json"
}

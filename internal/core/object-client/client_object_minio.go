package objectclient

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	cfg "github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/core"
	"github.com/markdave123-py/contexta-ingest/internal/logger"
)

var _ core.ObjectClient = (*MinioClient)(nil)

// MinioClient stores documents in a MinIO (or any S3-compatible) bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
	log    logger.Logger
}

func NewMinioClient(ctx context.Context, cfg *cfg.Config, log logger.Logger) (*MinioClient, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.AwsRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.BucketName, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.AwsRegion}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.BucketName, err)
		}
		log.Info("created bucket", logger.String("bucket", cfg.BucketName))
	}

	return &MinioClient{client: client, bucket: cfg.BucketName, log: log}, nil
}

func (m *MinioClient) UploadFile(ctx context.Context, key string, data io.Reader, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, data, -1, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		m.log.Error("minio upload failed", logger.String("key", key), logger.Error(err))
		return fmt.Errorf("minio upload failed: %w", err)
	}
	return nil
}

func (m *MinioClient) GetFile(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("minio get failed: %w", err)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return body, nil
}

package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/pkg/logger"
)

// objectPutter 由 *minio.Client 实现
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type MinioStore struct {
	client    objectPutter
	bucket    string
	publicURL string
}

// NewMinioStore 连接 MinIO 并确保 bucket 存在
func NewMinioStore(ctx context.Context, cfg config.StorageConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
		logger.Info("created image bucket", zap.String("bucket", cfg.Bucket))
	}
	return newMinioStore(client, cfg.Bucket, cfg.PublicURL), nil
}

func newMinioStore(client objectPutter, bucket, publicURL string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *MinioStore) Upload(ctx context.Context, folder, filename string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ValidateImage(size, contentType); err != nil {
		return "", err
	}
	objectName := path.Join(folder, uuid.New().String()+strings.ToLower(filepath.Ext(filename)))
	if _, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return s.publicURL + "/" + s.bucket + "/" + objectName, nil
}

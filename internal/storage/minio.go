package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"coa-registry/internal/config"
	"coa-registry/internal/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio stores objects in any S3-compatible service.
type Minio struct {
	Client *minio.Client
	scheme string
	host   string
	Logger *logger.Logger
}

func NewMinio(ctx context.Context, cfg config.StorageConfig, log *logger.Logger) (*Minio, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	m := &Minio{Client: client, scheme: scheme, host: cfg.Endpoint, Logger: log}

	for _, bucket := range []string{cfg.ProofBucket, cfg.ImageBucket} {
		if err := m.ensureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Minio) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := m.Client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.Client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	m.Logger.LogStorage("CREATE_BUCKET", bucket, "bucket created")
	return nil
}

func (m *Minio) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, size int64, contentType string) error {
	objectPath, err := CleanObjectPath(objectPath)
	if err != nil {
		return err
	}
	info, err := m.Client.PutObject(ctx, bucket, objectPath, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("failed to upload %s/%s: %w", bucket, objectPath, err)
	}
	m.Logger.LogStorage("UPLOAD", bucket+"/"+objectPath, fmt.Sprintf("%d bytes", info.Size))
	return nil
}

// PublicURL assumes the bucket has an anonymous read policy.
func (m *Minio) PublicURL(bucket, objectPath string) string {
	if objectPath == "" {
		return ""
	}
	u := url.URL{Scheme: m.scheme, Host: m.host, Path: "/" + bucket + "/" + objectPath}
	return u.String()
}

func (m *Minio) SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error) {
	if objectPath == "" {
		return "", nil
	}
	u, err := m.Client.PresignedGetObject(ctx, bucket, objectPath, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to sign %s/%s: %w", bucket, objectPath, err)
	}
	return u.String(), nil
}

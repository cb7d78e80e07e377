// Package storage keeps proof photos, book photos and certificate images.
// Proof photos live in a private bucket and are only reachable through
// short-lived signed URLs; the image bucket is public.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"coa-registry/internal/config"
	"coa-registry/internal/logger"
)

type Storage interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, size int64, contentType string) error
	PublicURL(bucket, objectPath string) string
	SignedURL(ctx context.Context, bucket, objectPath string, ttl time.Duration) (string, error)
}

// New picks the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig, publicBaseURL string, log *logger.Logger) (Storage, error) {
	switch cfg.Backend {
	case "minio", "s3":
		return NewMinio(ctx, cfg, log)
	case "local", "":
		return NewLocal(cfg.LocalDir, publicBaseURL, cfg.SigningKey, []string{cfg.ImageBucket}, log)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// CleanObjectPath rejects traversal and absolute paths.
func CleanObjectPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("object path is empty")
	}
	cleaned := path.Clean("/" + p)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(p, "/") || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid object path %q", p)
	}
	return cleaned, nil
}

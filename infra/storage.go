package infra

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/tnqbao/gau-catalog-service/config"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStorage is a flat bucket of media blobs addressed by key.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// DeleteObject returns ErrObjectNotFound when the key does not exist.
	DeleteObject(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(url string) (string, bool)
	EnsureBucket(ctx context.Context) error
	HealthCheck(ctx context.Context) error
}

func InitObjectStorage(ctx context.Context, cfg *config.EnvConfig) (ObjectStorage, error) {
	switch cfg.Storage.Driver {
	case "minio":
		return NewMinioClient(cfg)
	case "s3":
		return NewS3Client(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

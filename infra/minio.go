package infra

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/madmin-go/v3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/tnqbao/gau-catalog-service/config"
	"github.com/tnqbao/gau-catalog-service/utils"
)

type MinioClient struct {
	Admin    *madmin.AdminClient
	Client   *minio.Client
	Endpoint string
	Bucket   string
	Region   string
	urls     utils.PublicURLBuilder
}

func NewMinioClient(cfg *config.EnvConfig) (*MinioClient, error) {
	endpoint := cfg.Storage.Endpoint
	if endpoint == "" {
		return nil, errors.New("MinIO endpoint is not configured")
	}
	if cfg.Storage.AccessKey == "" || cfg.Storage.SecretKey == "" {
		return nil, errors.New("MinIO credentials are not configured")
	}

	madminClient, err := madmin.New(endpoint, cfg.Storage.AccessKey, cfg.Storage.SecretKey, cfg.Storage.UseSSL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO admin client: %w", err)
	}

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
		Region: cfg.Storage.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	baseURL := cfg.Storage.PublicBaseURL
	if baseURL == "" {
		scheme := "http"
		if cfg.Storage.UseSSL {
			scheme = "https"
		}
		baseURL = scheme + "://" + endpoint
	}

	return &MinioClient{
		Admin:    madminClient,
		Client:   minioClient,
		Endpoint: endpoint,
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		urls:     utils.PublicURLBuilder{BaseURL: baseURL, Bucket: cfg.Storage.Bucket},
	}, nil
}

func (m *MinioClient) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := m.Client.PutObject(ctx, m.Bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

// DeleteObject stats first since RemoveObject succeeds on missing keys.
func (m *MinioClient) DeleteObject(ctx context.Context, key string) error {
	if _, err := m.Client.StatObject(ctx, m.Bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}

	if err := m.Client.RemoveObject(ctx, m.Bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (m *MinioClient) PublicURL(key string) string {
	return m.urls.Build(key)
}

func (m *MinioClient) KeyFromURL(url string) (string, bool) {
	return m.urls.KeyFromURL(url)
}

// EnsureBucket creates the media bucket with anonymous read access if it is missing.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.Client.MakeBucket(ctx, m.Bucket, minio.MakeBucketOptions{Region: m.Region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	policyJSON := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, m.Bucket)
	if err := m.Client.SetBucketPolicy(ctx, m.Bucket, policyJSON); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

// HealthCheck asks the admin API first and falls back to a bucket probe for
// credentials without admin rights.
func (m *MinioClient) HealthCheck(ctx context.Context) error {
	if _, err := m.Admin.ServerInfo(ctx); err == nil {
		return nil
	}

	exists, err := m.Client.BucketExists(ctx, m.Bucket)
	if err != nil {
		return fmt.Errorf("minio unreachable: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.Bucket)
	}
	return nil
}

func isMinioNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == http.StatusNotFound
}

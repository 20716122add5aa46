package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/url"
	"sync"
	"time"

	"energy-debates/internal/apperr"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig locates the bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	URLExpiry time.Duration
}

// MinIO stores blobs in an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
	expiry time.Duration

	bucketOnce sync.Once
	bucketErr  error
}

// NewMinIO connects to the endpoint. The bucket is created lazily on first Put.
func NewMinIO(cfg MinIOConfig) (*MinIO, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: minio client: %v", apperr.ErrStorage, err)
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}
	log.Printf("MinIO storage at %s, bucket %s", cfg.Endpoint, cfg.Bucket)
	return &MinIO{client: client, bucket: cfg.Bucket, expiry: expiry}, nil
}

func (m *MinIO) ensureBucket(ctx context.Context) error {
	m.bucketOnce.Do(func() {
		exists, err := m.client.BucketExists(ctx, m.bucket)
		if err != nil {
			m.bucketErr = fmt.Errorf("%w: check bucket: %v", apperr.ErrStorage, err)
			return
		}
		if exists {
			return
		}
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			m.bucketErr = fmt.Errorf("%w: create bucket: %v", apperr.ErrStorage, err)
			return
		}
		log.Printf("Bucket '%s' created", m.bucket)
	})
	return m.bucketErr
}

func (m *MinIO) Put(ctx context.Context, key string, data []byte) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := m.ensureBucket(ctx); err != nil {
		return "", err
	}
	_, err = m.client.PutObject(ctx, m.bucket, cleaned, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType(cleaned),
	})
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", apperr.ErrStorage, cleaned, err)
	}
	return cleaned, nil
}

func (m *MinIO) Get(ctx context.Context, key string) ([]byte, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, cleaned, minio.GetObjectOptions{})
	if err != nil {
		return nil, m.mapError(cleaned, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, m.mapError(cleaned, err)
	}
	return data, nil
}

func (m *MinIO) Exists(ctx context.Context, key string) (bool, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	info, err := m.client.StatObject(ctx, m.bucket, cleaned, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %v", apperr.ErrStorage, cleaned, err)
	}
	return info.Size > 0, nil
}

func (m *MinIO) URL(ctx context.Context, key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	u, err := m.client.PresignedGetObject(ctx, m.bucket, cleaned, m.expiry, make(url.Values))
	if err != nil {
		return "", fmt.Errorf("%w: presign %s: %v", apperr.ErrStorage, cleaned, err)
	}
	return u.String(), nil
}

func (m *MinIO) mapError(key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("blob %s: %w", key, apperr.ErrNotFound)
	}
	return fmt.Errorf("%w: get %s: %v", apperr.ErrStorage, key, err)
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}

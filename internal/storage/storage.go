// Package storage holds audio blobs: synthesized segments, intro/outro clips
// and final episodes.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"energy-debates/internal/apperr"
	"energy-debates/internal/config"
)

// BlobStore is the blob capability consumed by the audio pipeline.
type BlobStore interface {
	// Put writes data under key and returns the stored path.
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns a location a client can download the blob from.
	URL(ctx context.Context, key string) (string, error)
}

// Open builds the store selected by STORAGE_BACKEND.
func Open(cfg *config.Config) (BlobStore, error) {
	switch cfg.StorageBackend {
	case "minio":
		return NewMinIO(MinIOConfig{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		})
	case "memory":
		return NewMemory(), nil
	case "", "filesystem":
		baseURL := ""
		if cfg.BaseURL != "" {
			baseURL = strings.TrimRight(cfg.BaseURL, "/") + "/audio"
		}
		return NewFilesystem(cfg.AudioStoragePath, baseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// SegmentKey is the position-indexed key of one synthesized turn.
func SegmentKey(episodeID string, index int) string {
	return fmt.Sprintf("episodes/%s/segments/segment_%03d.mp3", episodeID, index)
}

// FinalKey is the key of an episode's composed audio.
func FinalKey(episodeID string) string {
	return fmt.Sprintf("episodes/%s/final.mp3", episodeID)
}

func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", apperr.Validation("blob key required")
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", apperr.Validation("invalid blob key %q", key)
	}
	return cleaned, nil
}

func contentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"energy-debates/internal/apperr"
)

// Filesystem stores blobs under a root directory.
type Filesystem struct {
	Root string
	// BaseURL prefixes download URLs. Empty returns the local path.
	BaseURL string
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(root, baseURL string) (*Filesystem, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %v", apperr.ErrStorage, err)
	}
	return &Filesystem{Root: root, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (f *Filesystem) path(key string) (string, string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(f.Root, filepath.FromSlash(cleaned)), nil
}

// Put writes through a temp file so readers never observe a partial blob.
func (f *Filesystem) Put(ctx context.Context, key string, data []byte) (string, error) {
	cleaned, full, err := f.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("%w: mkdir for %s: %v", apperr.ErrStorage, cleaned, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: temp file for %s: %v", apperr.ErrStorage, cleaned, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: write %s: %v", apperr.ErrStorage, cleaned, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: close %s: %v", apperr.ErrStorage, cleaned, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: rename %s: %v", apperr.ErrStorage, cleaned, err)
	}
	return cleaned, nil
}

func (f *Filesystem) Get(ctx context.Context, key string) ([]byte, error) {
	cleaned, full, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", cleaned, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrStorage, cleaned, err)
	}
	return data, nil
}

func (f *Filesystem) Exists(ctx context.Context, key string) (bool, error) {
	cleaned, full, err := f.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(full)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: stat %s: %v", apperr.ErrStorage, cleaned, err)
	}
	return info.Size() > 0, nil
}

func (f *Filesystem) URL(ctx context.Context, key string) (string, error) {
	cleaned, full, err := f.path(key)
	if err != nil {
		return "", err
	}
	if f.BaseURL == "" {
		return full, nil
	}
	return f.BaseURL + "/" + cleaned, nil
}

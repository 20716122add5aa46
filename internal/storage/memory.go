package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"energy-debates/internal/apperr"
)

// Memory is an in-process BlobStore used by the CLI dry-run mode and tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	puts  []string
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[cleaned] = append([]byte(nil), data...)
	m.puts = append(m.puts, cleaned)
	return cleaned, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[cleaned]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", cleaned, apperr.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[cleaned]
	return ok && len(data) > 0, nil
}

func (m *Memory) URL(ctx context.Context, key string) (string, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return "memory://" + cleaned, nil
}

// Keys lists stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.blobs))
	for k := range m.blobs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Puts returns every key written, in write order, including overwrites.
func (m *Memory) Puts() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.puts...)
}

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/patrickmn/go-cache"
)

// Backend is a byte-oriented key-value store.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context) error
}

// MemoryBackend keeps payloads in process memory.
type MemoryBackend struct {
	c *cache.Cache
}

// NewMemoryBackend returns a memory backend. A zero ttl keeps entries forever.
func NewMemoryBackend(ttl time.Duration) *MemoryBackend {
	if ttl <= 0 {
		return &MemoryBackend{c: cache.New(cache.NoExpiration, cache.NoExpiration)}
	}
	return &MemoryBackend{c: cache.New(ttl, 2*ttl)}
}

// Get returns the payload stored under key.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("%w: unexpected value type %T for %q", ErrBackendFailed, v, key)
	}
	return b, true, nil
}

// Set stores a copy of value under key with the default expiration.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte) error {
	m.c.SetDefault(key, bytes.Clone(value))
	return nil
}

// Clear drops every payload.
func (m *MemoryBackend) Clear(context.Context) error {
	m.c.Flush()
	return nil
}

const diskSuffix = ".cache"

// DiskBackend stores one file per key under a directory. Writes are atomic.
type DiskBackend struct {
	dir string
}

// NewDiskBackend stores payloads under dir, creating it when missing.
func NewDiskBackend(dir string) (*DiskBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache directory %q: %w", ErrBackendFailed, dir, err)
	}
	return &DiskBackend{dir: dir}, nil
}

func (d *DiskBackend) path(key string) string {
	return filepath.Join(d.dir, url.PathEscape(key)+diskSuffix)
}

// Get reads the payload file for key. A missing file is not an error.
func (d *DiskBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := os.ReadFile(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return b, true, nil
}

// Set atomically replaces the payload file for key.
func (d *DiskBackend) Set(_ context.Context, key string, value []byte) error {
	if err := atomic.WriteFile(d.path(key), bytes.NewReader(value)); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return nil
}

// Clear removes every cache file in the directory.
func (d *DiskBackend) Clear(context.Context) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), diskSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(d.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrBackendFailed, err)
	}
	return nil
}

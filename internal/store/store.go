package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanspareilsmyn/historylens/internal/config"
	"github.com/sanspareilsmyn/historylens/internal/series"
)

// rawSuffix marks the uncompressed variant of a cache key.
const rawSuffix = "-raw"

// EntryStore persists series cache entries on a Backend. One instance uses
// either the compressed or the raw key variant, never both.
type EntryStore struct {
	backend    Backend
	codec      Codec
	compressed bool
	logger     *zap.Logger
}

// NewEntryStore wraps backend. When compressed is set payloads are zstd
// compressed and stored under the bare key, otherwise as JSON under key+"-raw".
func NewEntryStore(backend Backend, compressed bool, logger *zap.Logger) (*EntryStore, error) {
	var codec Codec = JSONCodec{}
	if compressed {
		z, err := NewZstdCodec()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBackendFailed, err)
		}
		codec = z
	}
	return &EntryStore{backend: backend, codec: codec, compressed: compressed, logger: logger}, nil
}

// New builds the store described by cfg.
func New(cfg config.CacheConfig, logger *zap.Logger) (*EntryStore, error) {
	var backend Backend
	switch cfg.Backend {
	case config.CacheBackendMemory:
		backend = NewMemoryBackend(cfg.MemoryTTL)
	case config.CacheBackendDisk:
		d, err := NewDiskBackend(cfg.Directory)
		if err != nil {
			return nil, err
		}
		backend = d
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	logger.Info("Cache store created",
		zap.String("backend", cfg.Backend),
		zap.Bool("compressed", cfg.Compress),
		zap.String("directory", cfg.Directory),
	)
	return NewEntryStore(backend, cfg.Compress, logger)
}

func (s *EntryStore) storageKey(key string) string {
	if s.compressed {
		return key
	}
	return key + rawSuffix
}

// Get returns the entry stored under key, or nil when there is none.
func (s *EntryStore) Get(ctx context.Context, key string) (*series.Entry, error) {
	data, ok, err := s.backend.Get(ctx, s.storageKey(key))
	if err != nil || !ok {
		return nil, err
	}
	entry, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("key %q: %w", key, err)
	}
	return entry, nil
}

// Set replaces the entry stored under key.
func (s *EntryStore) Set(ctx context.Context, key string, entry *series.Entry) error {
	data, err := s.codec.Encode(entry)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.storageKey(key), data); err != nil {
		return err
	}
	s.logger.Debug("Cache entry stored", zap.String("key", s.storageKey(key)), zap.Int("bytes", len(data)), zap.Int("points", len(entry.Data)))
	return nil
}

// ClearAll wipes every entry in the backend, not only this store's keys.
func (s *EntryStore) ClearAll(ctx context.Context) error {
	s.logger.Warn("Clearing cache store")
	return s.backend.Clear(ctx)
}

// Close releases codec resources.
func (s *EntryStore) Close() {
	if z, ok := s.codec.(*ZstdCodec); ok {
		z.Close()
	}
}

package cache

import (
	"context"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/rentmatch/storage"
)

// DefaultMemoryBytes bounds the in-process cache.
const DefaultMemoryBytes = 64 << 20

// Memory is a ristretto-backed storage.EmbeddingRepository.
// Entries may be evicted at any time.
type Memory struct {
	cache *ristretto.Cache[string, *storage.EmbeddingRecord]
}

var _ storage.EmbeddingRepository = (*Memory)(nil)

// NewMemory creates a cache holding roughly maxBytes of vector data.
// A non-positive maxBytes selects DefaultMemoryBytes.
func NewMemory(maxBytes int64) (*Memory, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMemoryBytes
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, *storage.EmbeddingRecord]{
		// ristretto recommends 10x the expected entry count; assume 1.5KB entries.
		NumCounters:        max(maxBytes/150, 1000),
		MaxCost:            maxBytes,
		BufferItems:        64,
		IgnoreInternalCost: true,
		Cost:               recordCost,
	})
	if err != nil {
		return nil, err
	}
	return &Memory{cache: c}, nil
}

func recordCost(record *storage.EmbeddingRecord) int64 {
	return int64(len(record.Vector)*4 + len(record.Model) + 8)
}

// GetEmbedding returns the cached record or nil.
func (m *Memory) GetEmbedding(ctx context.Context, key string) (*storage.EmbeddingRecord, error) {
	record, ok := m.cache.Get(key)
	if !ok {
		return nil, nil
	}
	return record, nil
}

// PutEmbedding caches record. The write is visible to the next Get.
func (m *Memory) PutEmbedding(ctx context.Context, key string, record *storage.EmbeddingRecord) error {
	m.cache.Set(key, record, 0)
	m.cache.Wait()
	return nil
}

// DeleteEmbeddings evicts keys.
func (m *Memory) DeleteEmbeddings(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		m.cache.Del(key)
	}
	return nil
}

// DeleteEmbeddingPrefix clears the whole cache; ristretto cannot enumerate keys.
func (m *Memory) DeleteEmbeddingPrefix(ctx context.Context, prefix string) error {
	m.cache.Clear()
	return nil
}

// Close stops ristretto's background goroutines.
func (m *Memory) Close() error {
	m.cache.Close()
	return nil
}

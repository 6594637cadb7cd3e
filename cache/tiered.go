package cache

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/rentmatch/storage"
)

// Tiered chains embedding stores, fastest first. Reads stop at the first
// hit and copy the record into every faster tier. Writes and deletes go
// to all tiers, slowest first.
type Tiered struct {
	tiers  []storage.EmbeddingRepository
	logger *slog.Logger
}

var _ storage.EmbeddingRepository = (*Tiered)(nil)

// NewTiered stacks tiers in lookup order. A nil logger means slog.Default().
func NewTiered(logger *slog.Logger, tiers ...storage.EmbeddingRepository) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tiered{
		tiers:  tiers,
		logger: logger.With("component", "embedding-cache"),
	}
}

// GetEmbedding searches the tiers in order.
func (t *Tiered) GetEmbedding(ctx context.Context, key string) (*storage.EmbeddingRecord, error) {
	for i, tier := range t.tiers {
		record, err := tier.GetEmbedding(ctx, key)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		for _, faster := range t.tiers[:i] {
			if err := faster.PutEmbedding(ctx, key, record); err != nil {
				t.logger.Warn("cache backfill failed", "key", key, "err", err)
			}
		}
		return record, nil
	}
	return nil, nil
}

// PutEmbedding writes record to every tier.
func (t *Tiered) PutEmbedding(ctx context.Context, key string, record *storage.EmbeddingRecord) error {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if err := t.tiers[i].PutEmbedding(ctx, key, record); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEmbeddings removes keys from every tier.
func (t *Tiered) DeleteEmbeddings(ctx context.Context, keys ...string) error {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if err := t.tiers[i].DeleteEmbeddings(ctx, keys...); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEmbeddingPrefix removes the prefix from every tier.
func (t *Tiered) DeleteEmbeddingPrefix(ctx context.Context, prefix string) error {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if err := t.tiers[i].DeleteEmbeddingPrefix(ctx, prefix); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every tier and reports all failures.
func (t *Tiered) Close() error {
	var errs []error
	for _, tier := range t.tiers {
		if err := tier.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

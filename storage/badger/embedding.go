package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rentmatch/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
// It is the persistent tier of the embedding cache.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) *EmbeddingRepository {
	return &EmbeddingRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *EmbeddingRepository) Close() error {
	return nil
}

// GetEmbedding returns the record stored under key, or nil when absent.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, key string) (*storage.EmbeddingRecord, error) {
	var record *storage.EmbeddingRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			record, err = storage.UnmarshalEmbeddingRecord(val)
			return err
		})
	}, false)
	return record, err
}

// PutEmbedding stores record under key.
func (r *EmbeddingRepository) PutEmbedding(ctx context.Context, key string, record *storage.EmbeddingRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeEmbeddingKey(key), storage.MarshalEmbeddingRecord(record)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// DeleteEmbeddings removes keys, ignoring the ones that don't exist.
func (r *EmbeddingRepository) DeleteEmbeddings(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, key := range keys {
			if err := tx.Delete(makeEmbeddingKey(key)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteEmbeddingPrefix drops every record whose key starts with prefix.
func (r *EmbeddingRepository) DeleteEmbeddingPrefix(ctx context.Context, prefix string) error {
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeEmbeddingKey(prefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		return nil
	}, false)
	if err != nil {
		return err
	}

	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rentmatch/storage"
)

// IndexMetaRepository implements storage.IndexMetaRepository for BadgerDB.
type IndexMetaRepository struct {
	backend *Backend
}

var _ storage.IndexMetaRepository = (*IndexMetaRepository)(nil)

// NewIndexMetaRepository creates a new IndexMetaRepository.
func NewIndexMetaRepository(backend *Backend) *IndexMetaRepository {
	return &IndexMetaRepository{backend: backend}
}

// SaveIndexMeta persists the description of a finished index build.
func (r *IndexMetaRepository) SaveIndexMeta(ctx context.Context, meta *storage.IndexMeta) error {
	value, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(indexMetaKey), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// LoadIndexMeta retrieves the last build.
// Returns nil, nil if no index was ever built.
func (r *IndexMetaRepository) LoadIndexMeta(ctx context.Context) (*storage.IndexMeta, error) {
	var meta *storage.IndexMeta
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(indexMetaKey))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			meta = &storage.IndexMeta{}
			if err := json.Unmarshal(val, meta); err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			return nil
		})
	}, false)

	return meta, err
}

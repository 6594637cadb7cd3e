package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/storage"
)

// listingBatchSize bounds the writes per transaction so large catalog
// imports stay under badger's transaction size limit.
const listingBatchSize = 500

// ListingRepository implements storage.ListingRepository for BadgerDB.
type ListingRepository struct {
	backend *Backend
}

var _ storage.ListingRepository = (*ListingRepository)(nil)

// NewListingRepository creates a new ListingRepository.
func NewListingRepository(backend *Backend) *ListingRepository {
	return &ListingRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *ListingRepository) Close() error {
	return nil
}

// PutListings inserts or replaces listings by ID.
func (r *ListingRepository) PutListings(ctx context.Context, listings ...*core.Listing) ([]*core.Listing, error) {
	var changed []*core.Listing
	for start := 0; start < len(listings); start += listingBatchSize {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		end := min(start+listingBatchSize, len(listings))
		err := r.backend.WithTx(func(tx *badger.Txn) error {
			var batchChanged []*core.Listing
			for _, listing := range listings[start:end] {
				if listing.ID == "" {
					return core.ErrEmptyID
				}
				key := makeListingKey(listing.ID)

				old, err := readListing(tx, key)
				if err != nil {
					return err
				}
				if old == nil || old.Fingerprint() != listing.Fingerprint() {
					batchChanged = append(batchChanged, listing)
				}

				value, err := storage.MarshalListing(listing)
				if err != nil {
					return err
				}
				if err := tx.Set(key, value); err != nil {
					return err
				}
			}
			if err := touch(tx, catalogUpdatedKey); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return err
			}
			changed = append(changed, batchChanged...)
			return nil
		}, true)
		if err != nil {
			return changed, err
		}
	}
	return changed, nil
}

// GetListing retrieves a single listing by ID.
func (r *ListingRepository) GetListing(ctx context.Context, id string) (*core.Listing, error) {
	var result *core.Listing
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readListing(tx, makeListingKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetListings retrieves multiple listings by their IDs.
func (r *ListingRepository) GetListings(ctx context.Context, ids ...string) ([]*core.Listing, error) {
	result := make([]*core.Listing, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			listing, err := readListing(tx, makeListingKey(id))
			if err != nil {
				return err
			}
			if listing != nil {
				result = append(result, listing)
			}
		}
		return nil
	}, false)
	return result, err
}

// AllListings scans the listing prefix. Keys sort by ID.
func (r *ListingRepository) AllListings(ctx context.Context) ([]*core.Listing, error) {
	var results []*core.Listing
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(listingPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var listing *core.Listing
			err := iter.Item().Value(func(val []byte) error {
				var err error
				listing, err = storage.UnmarshalListing(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, listing)
		}
		return nil
	}, false)
	return results, err
}

// DeleteListings removes listings by their IDs.
func (r *ListingRepository) DeleteListings(ctx context.Context, ids ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeListingKey(id)
			if _, err := tx.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return storage.ErrNotFound
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := touch(tx, catalogUpdatedKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// CountListings counts keys under the listing prefix without reading values.
func (r *ListingRepository) CountListings(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(listingPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// UpdatedAt returns when the catalog last changed.
func (r *ListingRepository) UpdatedAt(ctx context.Context) (time.Time, error) {
	var stamp time.Time
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		stamp, err = readStamp(tx, catalogUpdatedKey)
		return err
	}, false)
	return stamp, err
}

// readListing reads a listing from the transaction. Returns nil, nil if absent.
func readListing(tx *badger.Txn, key []byte) (*core.Listing, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var listing *core.Listing
	err = item.Value(func(val []byte) error {
		var err error
		listing, err = storage.UnmarshalListing(val)
		return err
	})
	return listing, err
}

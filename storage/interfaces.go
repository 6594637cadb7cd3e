// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"context"
	"time"

	"github.com/poiesic/rentmatch/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// ListingRepository stores the rental catalog.
type ListingRepository interface {
	Repository

	// PutListings inserts or replaces listings by ID.
	// Returns the listings that were new or whose embeddable content changed,
	// so callers can invalidate cached embeddings for exactly those.
	PutListings(ctx context.Context, listings ...*core.Listing) ([]*core.Listing, error)

	// GetListing retrieves a single listing by ID.
	// Returns ErrNotFound if the listing doesn't exist.
	GetListing(ctx context.Context, id string) (*core.Listing, error)

	// GetListings retrieves multiple listings by ID, in the order given.
	// Returns only the listings that exist (no error for missing IDs).
	GetListings(ctx context.Context, ids ...string) ([]*core.Listing, error)

	// AllListings returns the whole catalog ordered by ID.
	AllListings(ctx context.Context) ([]*core.Listing, error)

	// DeleteListings removes listings by ID.
	// Returns ErrNotFound if any listing doesn't exist.
	DeleteListings(ctx context.Context, ids ...string) error

	// CountListings returns the catalog size.
	CountListings(ctx context.Context) (int, error)

	// UpdatedAt returns when the catalog last changed. Zero if never written.
	UpdatedAt(ctx context.Context) (time.Time, error)
}

// EmbeddingRecord is a cached vector with the model that produced it and the
// fingerprint of the content it was computed from.
type EmbeddingRecord struct {
	Model       string
	Fingerprint core.Fingerprint
	Vector      []float32
}

// EmbeddingRepository is a key-value store for embedding records.
// Keys are opaque strings built by the embedding service.
type EmbeddingRepository interface {
	Repository

	// GetEmbedding returns the record for key, or nil and no error when absent.
	GetEmbedding(ctx context.Context, key string) (*EmbeddingRecord, error)

	// PutEmbedding stores a record under key, replacing any previous value.
	PutEmbedding(ctx context.Context, key string, record *EmbeddingRecord) error

	// DeleteEmbeddings removes the given keys. Missing keys are ignored.
	DeleteEmbeddings(ctx context.Context, keys ...string) error

	// DeleteEmbeddingPrefix removes every key starting with prefix.
	DeleteEmbeddingPrefix(ctx context.Context, prefix string) error
}

// IndexMeta describes the last built similarity index snapshot.
type IndexMeta struct {
	BuiltAt    time.Time `json:"built_at"`
	TextModel  string    `json:"text_model"`
	TextDim    int       `json:"text_dim"`
	ImageModel string    `json:"image_model"`
	ImageDim   int       `json:"image_dim"`
	Rentals    int       `json:"rentals"`
	Snapshot   string    `json:"snapshot"`
}

// IndexMetaRepository persists the watermark of the last index build.
type IndexMetaRepository interface {
	// SaveIndexMeta records a finished build.
	SaveIndexMeta(ctx context.Context, meta *IndexMeta) error

	// LoadIndexMeta returns the last build, or nil and no error if none.
	LoadIndexMeta(ctx context.Context) (*IndexMeta, error)
}

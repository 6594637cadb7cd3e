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


// Package embedding turns listings into model-tagged vectors, caching them
// across requests.
//
// Text vectors are cached per listing ID and validated against the listing's
// content fingerprint, so an edited rental is re-embedded even if nobody
// invalidated it. Image vectors are cached per image reference. Concurrent
// first requests for one key share a single model call.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/rentmatch/ai"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/similarity"
	"github.com/poiesic/rentmatch/storage"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultMaxImages caps the images embedded per listing.
	DefaultMaxImages = 2

	// DefaultBatchSize is the number of texts per EmbedTexts call in Warm.
	DefaultBatchSize = 32
)

// Service implements similarity.EmbeddingSource on top of an ai.Provider
// and an optional storage.EmbeddingRepository.
type Service struct {
	embedder      ai.Embedder
	imageEmbedder ai.ImageEmbedder
	textModel     string
	imageModel    string
	store         storage.EmbeddingRepository
	group         singleflight.Group
	maxImages     int
	batchSize     int
	logger        *slog.Logger
}

var _ similarity.EmbeddingSource = (*Service)(nil)

// Option configures a Service.
type Option func(*Service) error

// WithStore caches vectors in store. Without a store every request embeds
// from scratch.
func WithStore(store storage.EmbeddingRepository) Option {
	return func(s *Service) error {
		s.store = store
		return nil
	}
}

// WithMaxImages caps the images embedded per listing.
// Default is DefaultMaxImages.
func WithMaxImages(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			return ErrInvalidMaxImages
		}
		s.maxImages = n
		return nil
	}
}

// WithBatchSize sets the number of texts per model call in Warm.
func WithBatchSize(n int) Option {
	return func(s *Service) error {
		if n <= 0 {
			return ErrInvalidBatchSize
		}
		s.batchSize = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewService creates an embedding service for provider's models.
func NewService(provider ai.Provider, opts ...Option) (*Service, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	s := &Service{
		embedder:      provider.Embedder(),
		imageEmbedder: provider.ImageEmbedder(),
		textModel:     provider.TextModel(),
		imageModel:    provider.ImageModel(),
		maxImages:     DefaultMaxImages,
		batchSize:     DefaultBatchSize,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "embedding")
	return s, nil
}

// TextModel returns the tag carried by text embeddings.
func (s *Service) TextModel() string {
	return s.textModel
}

// ImageModel returns the tag carried by image embeddings.
func (s *Service) ImageModel() string {
	return s.imageModel
}

// TextEmbedding embeds listing.Text(). Empty text returns a zero vector
// without calling the model.
func (s *Service) TextEmbedding(ctx context.Context, listing *core.Listing) (core.Embedding, error) {
	text := listing.Text()
	if text == "" {
		return core.Embedding{Model: s.textModel}, nil
	}
	fingerprint := core.FingerprintOf(text)
	if listing.ID == "" {
		vector, err := s.embedder.EmbedText(ctx, text)
		if err != nil {
			return core.Embedding{}, err
		}
		return core.NewEmbedding(s.textModel, vector), nil
	}

	vector, err := s.cached(ctx, TextKey(s.textModel, listing.ID), s.textModel, fingerprint, func(ctx context.Context) ([]float32, error) {
		return s.embedder.EmbedText(ctx, text)
	})
	if err != nil {
		return core.Embedding{}, err
	}
	return core.NewEmbedding(s.textModel, vector), nil
}

// ImageEmbeddings embeds up to the configured number of images. An image
// that fails to embed is logged and left out; only context errors abort.
func (s *Service) ImageEmbeddings(ctx context.Context, listing *core.Listing) ([]core.Embedding, error) {
	refs := listing.Images
	if len(refs) > s.maxImages {
		refs = refs[:s.maxImages]
	}

	result := make([]core.Embedding, 0, len(refs))
	for _, ref := range refs {
		vector, err := s.cached(ctx, ImageKey(s.imageModel, ref), s.imageModel, core.FingerprintOf(ref), func(ctx context.Context) ([]float32, error) {
			return s.imageEmbedder.EmbedImage(ctx, ref)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("dropping image", "listing", listing.ID, "err", err)
			continue
		}
		result = append(result, core.NewEmbedding(s.imageModel, vector))
	}
	return result, nil
}

// cached serves key from the store when the stored record matches model and
// fingerprint, and otherwise calls compute once for all concurrent callers.
// Store failures degrade to recomputation.
//
// The shared call runs detached from any one caller's context; each caller
// stops waiting when its own ctx is done.
func (s *Service) cached(ctx context.Context, key, model string, fingerprint core.Fingerprint, compute func(context.Context) ([]float32, error)) ([]float32, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) {
		if s.store != nil {
			record, err := s.store.GetEmbedding(shared, key)
			if err != nil {
				s.logger.Warn("embedding cache read failed", "key", key, "err", err)
			} else if record != nil && record.Model == model && record.Fingerprint == fingerprint {
				return record.Vector, nil
			}
		}

		vector, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if len(vector) == 0 {
			return nil, ai.ErrEmptyEmbedding
		}

		if s.store != nil {
			record := &storage.EmbeddingRecord{Model: model, Fingerprint: fingerprint, Vector: vector}
			if err := s.store.PutEmbedding(shared, key, record); err != nil {
				s.logger.Warn("embedding cache write failed", "key", key, "err", err)
			}
		}
		return vector, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Warm embeds the text of every listing not yet cached, in batches. Listings
// with empty text or no ID are skipped. Returns the number embedded.
func (s *Service) Warm(ctx context.Context, listings []*core.Listing) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	var pending []*core.Listing
	for _, listing := range listings {
		text := listing.Text()
		if listing.ID == "" || text == "" {
			continue
		}
		record, err := s.store.GetEmbedding(ctx, TextKey(s.textModel, listing.ID))
		if err != nil {
			return 0, err
		}
		if record != nil && record.Model == s.textModel && record.Fingerprint == core.FingerprintOf(text) {
			continue
		}
		pending = append(pending, listing)
	}

	embedded := 0
	for start := 0; start < len(pending); start += s.batchSize {
		batch := pending[start:min(start+s.batchSize, len(pending))]
		texts := make([]string, len(batch))
		for i, listing := range batch {
			texts[i] = listing.Text()
		}

		s.logger.Debug("embedding batch", "start", start, "size", len(batch))
		vectors, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return embedded, err
		}
		if len(vectors) != len(batch) {
			return embedded, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
		}

		for i, listing := range batch {
			record := &storage.EmbeddingRecord{
				Model:       s.textModel,
				Fingerprint: core.FingerprintOf(texts[i]),
				Vector:      vectors[i],
			}
			if err := s.store.PutEmbedding(ctx, TextKey(s.textModel, listing.ID), record); err != nil {
				return embedded, err
			}
			embedded++
		}
	}
	return embedded, nil
}

// Invalidate drops the cached vectors of listings under the current models.
func (s *Service) Invalidate(ctx context.Context, listings ...*core.Listing) error {
	if s.store == nil || len(listings) == 0 {
		return nil
	}
	keys := make([]string, 0, len(listings))
	for _, listing := range listings {
		keys = append(keys, TextKey(s.textModel, listing.ID))
		for _, ref := range listing.Images {
			keys = append(keys, ImageKey(s.imageModel, ref))
		}
	}
	return s.store.DeleteEmbeddings(ctx, keys...)
}

// Purge drops every cached vector, for all models.
func (s *Service) Purge(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.DeleteEmbeddingPrefix(ctx, textNamespace); err != nil {
		return err
	}
	return s.store.DeleteEmbeddingPrefix(ctx, imageNamespace)
}

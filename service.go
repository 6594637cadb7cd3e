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


// Package rentmatch finds the rental listings most similar to a property
// for sale.
//
// A Service owns the rental catalog (BadgerDB), the embedding cache, the
// matching engine and the optional similarity index:
//
//	svc, err := rentmatch.New("./data")
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
//
//	report, err := svc.ImportCatalog(ctx, &catalog.JSONFile{Path: "rentals.json"})
//	...
//	result, err := svc.Match(ctx, sale, 5)
package rentmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/rentmatch/ai"
	"github.com/poiesic/rentmatch/ai/openai"
	"github.com/poiesic/rentmatch/cache"
	"github.com/poiesic/rentmatch/catalog"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/embedding"
	"github.com/poiesic/rentmatch/index"
	"github.com/poiesic/rentmatch/match"
	"github.com/poiesic/rentmatch/similarity"
	"github.com/poiesic/rentmatch/storage"
	"github.com/poiesic/rentmatch/storage/badger"
)

// Service matches sale listings against the stored rental catalog.
type Service struct {
	backend     *badger.Backend
	listings    *badger.ListingRepository
	indexMeta   *badger.IndexMetaRepository
	store       *cache.Tiered
	provider    ai.Provider
	ownProvider bool
	embeddings  *embedding.Service
	engine      *match.Engine
	holder      index.Holder
	extractor   Extractor
	config      Config
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*serviceOptions) error

type serviceOptions struct {
	aiConfig    *ai.Config
	provider    ai.Provider
	config      Config
	inMemory    bool
	memoryBytes int64
	sharedCache storage.EmbeddingRepository
	extractor   Extractor
	monitor     match.Monitor
	logger      *slog.Logger
}

// WithAIConfig configures the OpenAI-compatible model services.
// Ignored when WithProvider is given.
func WithAIConfig(config *ai.Config) Option {
	return func(o *serviceOptions) error {
		o.aiConfig = config
		return nil
	}
}

// WithProvider injects the model provider. The caller keeps ownership and
// closes it.
func WithProvider(provider ai.Provider) Option {
	return func(o *serviceOptions) error {
		o.provider = provider
		return nil
	}
}

// WithConfig sets the matching tunables.
// Default is DefaultConfig().
func WithConfig(config Config) Option {
	return func(o *serviceOptions) error {
		if err := config.Validate(); err != nil {
			return err
		}
		o.config = config
		return nil
	}
}

// WithInMemory keeps the catalog in memory; the path passed to New is ignored.
func WithInMemory() Option {
	return func(o *serviceOptions) error {
		o.inMemory = true
		return nil
	}
}

// WithMemoryCache sizes the in-process embedding cache in bytes.
// Zero or less disables it. Default is cache.DefaultMemoryBytes.
func WithMemoryCache(maxBytes int64) Option {
	return func(o *serviceOptions) error {
		o.memoryBytes = maxBytes
		return nil
	}
}

// WithSharedCache adds an embedding cache tier between the in-process cache
// and the local store, typically cache.Redis shared by several processes.
func WithSharedCache(store storage.EmbeddingRepository) Option {
	return func(o *serviceOptions) error {
		o.sharedCache = store
		return nil
	}
}

// WithExtractor sets the extractor used by MatchURL.
func WithExtractor(extractor Extractor) Option {
	return func(o *serviceOptions) error {
		o.extractor = extractor
		return nil
	}
}

// WithMonitor observes match requests.
func WithMonitor(monitor match.Monitor) Option {
	return func(o *serviceOptions) error {
		o.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// New opens or creates the catalog at path and wires the matching stack.
func New(path string, opts ...Option) (*Service, error) {
	options := &serviceOptions{
		config:      DefaultConfig(),
		memoryBytes: cache.DefaultMemoryBytes,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	if options.inMemory {
		path = ""
	}
	backend, err := badger.OpenBackend(path, options.inMemory)
	if err != nil {
		return nil, err
	}

	s := &Service{
		backend:   backend,
		listings:  badger.NewListingRepository(backend),
		indexMeta: badger.NewIndexMetaRepository(backend),
		provider:  options.provider,
		extractor: options.extractor,
		config:    options.config,
		logger:    options.logger.With("component", "rentmatch"),
	}

	if s.provider == nil {
		aiConfig := ai.DefaultConfig()
		if options.aiConfig != nil {
			copied := *options.aiConfig
			aiConfig = &copied
		}
		if aiConfig.Logger == nil {
			aiConfig.Logger = options.logger
		}
		s.provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
		s.ownProvider = true
	}

	var tiers []storage.EmbeddingRepository
	if options.memoryBytes > 0 {
		memory, err := cache.NewMemory(options.memoryBytes)
		if err != nil {
			s.Close()
			return nil, err
		}
		tiers = append(tiers, memory)
	}
	if options.sharedCache != nil {
		tiers = append(tiers, options.sharedCache)
	}
	tiers = append(tiers, badger.NewEmbeddingRepository(backend))
	s.store = cache.NewTiered(options.logger, tiers...)

	s.embeddings, err = embedding.NewService(s.provider,
		embedding.WithStore(s.store),
		embedding.WithMaxImages(s.config.MaxImagesPerListing),
		embedding.WithLogger(options.logger))
	if err != nil {
		s.Close()
		return nil, err
	}

	s.engine, err = match.NewEngine(
		similarity.NewTextScorer(s.embeddings),
		similarity.NewImageScorer(s.embeddings),
		similarity.NewStructuredScorer(),
		match.WithWeights(s.config.Weights()),
		match.WithConcurrency(s.config.Concurrency),
		match.WithTimeout(s.config.Timeout),
		match.WithMonitor(options.monitor),
		match.WithLogger(options.logger))
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the engine, the caches, the provider (unless injected)
// and the catalog.
func (s *Service) Close() error {
	if s.engine != nil {
		s.engine.Release()
	}
	if s.ownProvider {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("error closing embedding cache", "err", err)
		}
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Listings returns the catalog repository.
func (s *Service) Listings() storage.ListingRepository {
	return s.listings
}

// Embeddings returns the embedding service.
func (s *Service) Embeddings() *embedding.Service {
	return s.embeddings
}

// Config returns the matching tunables.
func (s *Service) Config() Config {
	return s.config
}

// ImportReport summarizes a catalog import.
type ImportReport struct {
	// Imported is the number of valid listings written.
	Imported int
	// Changed is the number of new listings or listings whose text or photos changed.
	Changed int
	// Dropped is the number of invalid or duplicate records skipped.
	Dropped int
}

// ImportCatalog upserts every valid listing from src and drops the cached
// embeddings of listings whose content changed.
func (s *Service) ImportCatalog(ctx context.Context, src catalog.Source) (*ImportReport, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}
	listings, dropped, err := catalog.Collect(ctx, src, s.logger)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	changed, err := s.listings.PutListings(ctx, listings...)
	if err != nil {
		return nil, err
	}
	if err := s.embeddings.Invalidate(ctx, changed...); err != nil {
		return nil, fmt.Errorf("invalidating embeddings: %w", err)
	}

	report := &ImportReport{Imported: len(listings), Changed: len(changed), Dropped: dropped}
	s.logger.Info("catalog imported", "imported", report.Imported, "changed", report.Changed, "dropped", report.Dropped)
	return report, nil
}

// RemoveListings deletes rentals and their cached embeddings.
func (s *Service) RemoveListings(ctx context.Context, ids ...string) error {
	listings, err := s.listings.GetListings(ctx, ids...)
	if err != nil {
		return err
	}
	if err := s.embeddings.Invalidate(ctx, listings...); err != nil {
		return err
	}
	return s.listings.DeleteListings(ctx, ids...)
}

// InvalidateEmbeddings drops cached embeddings of the given rentals, or of
// everything when no ID is given.
func (s *Service) InvalidateEmbeddings(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return s.embeddings.Purge(ctx)
	}
	listings, err := s.listings.GetListings(ctx, ids...)
	if err != nil {
		return err
	}
	return s.embeddings.Invalidate(ctx, listings...)
}

// WarmEmbeddings embeds the text of every rental not yet cached.
func (s *Service) WarmEmbeddings(ctx context.Context) (int, error) {
	listings, err := s.listings.AllListings(ctx)
	if err != nil {
		return 0, err
	}
	return s.embeddings.Warm(ctx, listings)
}

// Match ranks the catalog against sale and returns the best topK rentals.
// With an index loaded only its candidates are scored; without one, or when
// the index offers nothing, the whole catalog is. A sale without an ID is
// matched under one derived from its URL; the caller's listing is not
// modified.
//
// Config.Timeout bounds the whole request, index query included. A deadline
// that passes before scoring starts yields a partial result with every
// candidate abandoned.
func (s *Service) Match(ctx context.Context, sale *core.Listing, topK int) (*match.Result, error) {
	if topK < 1 {
		return nil, match.ErrInvalidTopK
	}
	if sale != nil {
		copied := *sale
		sale = &copied
		if sale.ID == "" {
			sale.ID = saleID(sale)
		}
	}
	if err := core.ValidateListing(sale); err != nil {
		return nil, err
	}

	ctx = similarity.WithMemo(ctx)
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	candidates, err := s.candidates(ctx, sale)
	if err != nil {
		return nil, err
	}
	return s.engine.Match(ctx, sale, candidates, topK)
}

// MatchURL extracts the sale listing at url and matches it. Extraction
// failures and invalid extracted listings are returned as
// *core.ExtractionError.
func (s *Service) MatchURL(ctx context.Context, url string, topK int) (*core.Listing, *match.Result, error) {
	if s.extractor == nil {
		return nil, nil, ErrExtractorRequired
	}
	sale, err := s.extractor.Extract(ctx, url)
	if err != nil {
		return nil, nil, &core.ExtractionError{URL: url, Err: err}
	}
	if sale == nil {
		return nil, nil, &core.ExtractionError{URL: url, Err: core.ErrInvalidListing}
	}
	if sale.URL == "" {
		sale.URL = url
	}
	if sale.ID == "" {
		sale.ID = saleID(sale)
	}
	if err := core.ValidateListing(sale); err != nil {
		return nil, nil, &core.ExtractionError{URL: url, Err: err}
	}

	result, err := s.Match(ctx, sale, topK)
	if err != nil {
		return sale, nil, err
	}
	return sale, result, nil
}

func (s *Service) candidates(ctx context.Context, sale *core.Listing) ([]*core.Listing, error) {
	// Catalog reads are local and outlive the request deadline, so an
	// expired request still reports how many candidates it abandoned.
	catalogCtx := context.WithoutCancel(ctx)

	if idx := s.holder.Load(); idx != nil {
		ids, err := idx.Candidates(ctx, sale, similarity.Memoized(s.embeddings))
		switch {
		case err != nil:
			ctxErr := ctx.Err()
			if errors.Is(ctxErr, context.Canceled) {
				return nil, ctxErr
			}
			if ctxErr != nil {
				s.logger.Warn("deadline passed while querying the index", "err", err)
			} else {
				s.logger.Warn("index query failed, scoring the full catalog", "err", err)
			}
		case len(ids) == 0:
			s.logger.Debug("index returned no candidates, scoring the full catalog")
		default:
			listings, err := s.listings.GetListings(catalogCtx, ids...)
			if err != nil || len(listings) > 0 {
				return listings, err
			}
			s.logger.Debug("index candidates left the catalog, scoring the full catalog", "ids", len(ids))
		}
	}
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return nil, err
	}
	return s.listings.AllListings(catalogCtx)
}

// saleID derives an identifier for a sale listing that arrived without one.
func saleID(sale *core.Listing) string {
	if sale.URL != "" {
		return "sale-" + core.IDFromContent(sale.URL)
	}
	return "sale-" + core.IDFromContent(sale.Text())
}

// RebuildIndex builds a new index over the whole catalog and swaps it in.
// When Config.IndexPath is set the snapshot is saved and recorded.
func (s *Service) RebuildIndex(ctx context.Context) (*index.Index, error) {
	listings, err := s.listings.AllListings(ctx)
	if err != nil {
		return nil, err
	}
	opts := s.config.indexOptions()
	opts.Logger = s.logger
	idx, err := index.Build(ctx, listings, s.embeddings, opts)
	if err != nil {
		return nil, err
	}
	s.holder.Swap(idx)

	if s.config.IndexPath != "" {
		meta, err := idx.Save(s.config.IndexPath)
		if err != nil {
			return idx, err
		}
		if err := s.indexMeta.SaveIndexMeta(ctx, meta); err != nil {
			return idx, err
		}
	}
	return idx, nil
}

// LoadIndex restores the last saved index. It reports false, without error,
// when nothing was saved or the saved index was built with other models.
func (s *Service) LoadIndex(ctx context.Context) (bool, error) {
	meta, err := s.indexMeta.LoadIndexMeta(ctx)
	if err != nil {
		return false, err
	}
	if meta == nil || meta.Snapshot == "" {
		return false, nil
	}
	if meta.TextModel != s.embeddings.TextModel() || meta.ImageModel != s.embeddings.ImageModel() {
		s.logger.Warn("saved index was built with other models, ignoring it",
			"text_model", meta.TextModel,
			"image_model", meta.ImageModel)
		return false, nil
	}

	opts := s.config.indexOptions()
	opts.Logger = s.logger
	idx, err := index.Load(meta, opts)
	if err != nil {
		return false, err
	}
	s.holder.Swap(idx)
	return true, nil
}

// IndexBuiltAt returns the watermark of the current index, zero if none.
func (s *Service) IndexBuiltAt() time.Time {
	return s.holder.BuiltAt()
}

// IndexStale reports whether the catalog changed after the current index
// was built. Without an index it reports true.
func (s *Service) IndexStale(ctx context.Context) (bool, error) {
	builtAt := s.holder.BuiltAt()
	if builtAt.IsZero() {
		return true, nil
	}
	updatedAt, err := s.listings.UpdatedAt(ctx)
	if err != nil {
		return false, err
	}
	return updatedAt.After(builtAt), nil
}

// Stats describes the catalog and index.
type Stats struct {
	Listings         int       `json:"listings"`
	CatalogUpdatedAt time.Time `json:"catalog_updated_at"`
	IndexBuiltAt     time.Time `json:"index_built_at"`
	IndexedRentals   int       `json:"indexed_rentals"`
	IndexStale       bool      `json:"index_stale"`
	TextModel        string    `json:"text_model"`
	ImageModel       string    `json:"image_model"`
}

// Stats collects catalog and index figures.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.listings.CountListings(ctx)
	if err != nil {
		return nil, err
	}
	updatedAt, err := s.listings.UpdatedAt(ctx)
	if err != nil {
		return nil, err
	}
	stale, err := s.IndexStale(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		Listings:         count,
		CatalogUpdatedAt: updatedAt,
		IndexBuiltAt:     s.holder.BuiltAt(),
		IndexStale:       stale,
		TextModel:        s.embeddings.TextModel(),
		ImageModel:       s.embeddings.ImageModel(),
	}
	if idx := s.holder.Load(); idx != nil {
		stats.IndexedRentals = idx.Len()
	}
	return stats, nil
}

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


package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/similarity"
	"github.com/poiesic/rentmatch/storage"
	"golang.org/x/sync/errgroup"
)

const (
	textCollection  = "rentals_text"
	imageCollection = "rentals_image"

	rentalIDKey = "rental_id"

	// imageOverfetch widens image queries since several documents may
	// belong to one rental.
	imageOverfetch = 4
)

var errTextQuery = errors.New("index only accepts precomputed embeddings")

// refuseText keeps chromem from falling back to its default remote
// embedding function; every document and query carries its own vector.
func refuseText(context.Context, string) ([]float32, error) {
	return nil, errTextQuery
}

// Source yields the embeddings to index and names the models behind them.
type Source interface {
	similarity.EmbeddingSource
	TextModel() string
	ImageModel() string
}

// Hit is one rental returned by a query.
type Hit struct {
	RentalID   string
	Similarity float64
}

// Distance returns 1 - Similarity.
func (h Hit) Distance() float64 {
	return 1 - h.Similarity
}

// Index is an immutable snapshot of the catalog's embeddings.
type Index struct {
	db         *chromem.DB
	text       *chromem.Collection
	images     *chromem.Collection
	textModel  string
	textDim    int
	imageModel string
	imageDim   int
	rentals    int
	builtAt    time.Time
	opts       Options
	logger     *slog.Logger
}

type rentalDocs struct {
	text   *chromem.Document
	images []chromem.Document
}

// Build embeds rentals through source and indexes them. A rental whose
// embeddings cannot be computed is logged and left out; only context errors
// abort the build. Zero vectors are never indexed.
func Build(ctx context.Context, rentals []*core.Listing, source Source, opts Options) (*Index, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	idx := &Index{
		db:         chromem.NewDB(),
		textModel:  source.TextModel(),
		imageModel: source.ImageModel(),
		opts:       opts,
		logger:     opts.logger().With("component", "index"),
	}
	if err := idx.createCollections(); err != nil {
		return nil, err
	}

	docs := make([]rentalDocs, len(rentals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, rental := range rentals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			d, err := idx.embedRental(gctx, rental, source)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				idx.logger.Warn("skipping rental", "rental", rental.ID, "err", err)
				return nil
			}
			docs[i] = d
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var textDocs, imageDocs []chromem.Document
	for i, d := range docs {
		indexed := false
		if d.text != nil && idx.acceptDim(&idx.textDim, len(d.text.Embedding)) {
			textDocs = append(textDocs, *d.text)
			indexed = true
		}
		for _, doc := range d.images {
			if idx.acceptDim(&idx.imageDim, len(doc.Embedding)) {
				imageDocs = append(imageDocs, doc)
				indexed = true
			}
		}
		if indexed {
			idx.rentals++
		} else if d.text != nil || len(d.images) > 0 {
			idx.logger.Warn("skipping rental with inconsistent dimensions", "rental", rentals[i].ID)
		}
	}

	if len(textDocs) > 0 {
		if err := idx.text.AddDocuments(ctx, textDocs, opts.Concurrency); err != nil {
			return nil, fmt.Errorf("indexing text: %w", err)
		}
	}
	if len(imageDocs) > 0 {
		if err := idx.images.AddDocuments(ctx, imageDocs, opts.Concurrency); err != nil {
			return nil, fmt.Errorf("indexing images: %w", err)
		}
	}

	idx.builtAt = time.Now()
	idx.logger.Info("index built",
		"rentals", idx.rentals,
		"text_docs", idx.text.Count(),
		"image_docs", idx.images.Count())
	return idx, nil
}

func (idx *Index) createCollections() error {
	var err error
	idx.text, err = idx.db.CreateCollection(textCollection, nil, refuseText)
	if err != nil {
		return fmt.Errorf("creating text collection: %w", err)
	}
	idx.images, err = idx.db.CreateCollection(imageCollection, nil, refuseText)
	if err != nil {
		return fmt.Errorf("creating image collection: %w", err)
	}
	return nil
}

func (idx *Index) embedRental(ctx context.Context, rental *core.Listing, source Source) (rentalDocs, error) {
	var d rentalDocs

	text, err := source.TextEmbedding(ctx, rental)
	if err != nil {
		return d, fmt.Errorf("text: %w", err)
	}
	if text.Model != idx.textModel {
		return d, fmt.Errorf("text: %w", ErrModelMismatch)
	}
	if !text.IsZero() {
		d.text = &chromem.Document{
			ID:        rental.ID,
			Metadata:  map[string]string{rentalIDKey: rental.ID},
			Embedding: text.Vector,
		}
	}

	images, err := source.ImageEmbeddings(ctx, rental)
	if err != nil {
		return d, fmt.Errorf("images: %w", err)
	}
	for i, image := range images {
		if image.Model != idx.imageModel || image.IsZero() {
			continue
		}
		d.images = append(d.images, chromem.Document{
			ID:        rental.ID + "#" + strconv.Itoa(i),
			Metadata:  map[string]string{rentalIDKey: rental.ID},
			Embedding: image.Vector,
		})
	}
	return d, nil
}

// acceptDim pins *dim to the first dimension seen and rejects others.
func (idx *Index) acceptDim(dim *int, n int) bool {
	if *dim == 0 {
		*dim = n
	}
	return *dim == n
}

// Query returns up to k rentals whose text is nearest to emb, most similar
// first.
func (idx *Index) Query(ctx context.Context, emb core.Embedding, k int) ([]Hit, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if err := checkSpace(emb, idx.textModel, idx.textDim); err != nil {
		return nil, err
	}
	if emb.IsZero() {
		return nil, nil
	}

	results, err := query(ctx, idx.text, emb.Vector, k)
	if err != nil {
		return nil, fmt.Errorf("querying text: %w", err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{RentalID: r.Metadata[rentalIDKey], Similarity: float64(r.Similarity)}
	}
	return hits, nil
}

// QueryImage returns up to k rentals with an image nearest to emb. A rental
// with several indexed images scores by its best one.
func (idx *Index) QueryImage(ctx context.Context, emb core.Embedding, k int) ([]Hit, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if err := checkSpace(emb, idx.imageModel, idx.imageDim); err != nil {
		return nil, err
	}
	if emb.IsZero() {
		return nil, nil
	}

	results, err := query(ctx, idx.images, emb.Vector, k*imageOverfetch)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	best := make(map[string]float64, len(results))
	for _, r := range results {
		id := r.Metadata[rentalIDKey]
		if s, ok := best[id]; !ok || float64(r.Similarity) > s {
			best[id] = float64(r.Similarity)
		}
	}
	return topHits(best, k), nil
}

// Candidates returns the rental IDs worth scoring against sale: text hits
// first, then image hits, without duplicates and capped at FinalCandidates.
// An empty result means the index had nothing to offer.
func (idx *Index) Candidates(ctx context.Context, sale *core.Listing, source similarity.EmbeddingSource) ([]string, error) {
	text, err := source.TextEmbedding(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("embedding sale text: %w", err)
	}
	textHits, err := idx.Query(ctx, text, idx.opts.TextTopK)
	if err != nil {
		return nil, err
	}

	images, err := source.ImageEmbeddings(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("embedding sale images: %w", err)
	}
	best := make(map[string]float64)
	for _, image := range images {
		hits, err := idx.QueryImage(ctx, image, idx.opts.ImageTopK)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if s, ok := best[h.RentalID]; !ok || h.Similarity > s {
				best[h.RentalID] = h.Similarity
			}
		}
	}
	imageHits := topHits(best, idx.opts.ImageTopK)

	seen := make(map[string]struct{}, len(textHits)+len(imageHits))
	ids := make([]string, 0, min(idx.opts.FinalCandidates, len(textHits)+len(imageHits)))
	for _, h := range slices.Concat(textHits, imageHits) {
		if len(ids) == idx.opts.FinalCandidates {
			break
		}
		if _, dup := seen[h.RentalID]; dup {
			continue
		}
		seen[h.RentalID] = struct{}{}
		ids = append(ids, h.RentalID)
	}

	idx.logger.Debug("candidates",
		"sale", sale.ID,
		"text_hits", len(textHits),
		"image_hits", len(imageHits),
		"candidates", len(ids))
	return ids, nil
}

// BuiltAt returns when the index was built.
func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// Len returns the number of rentals with at least one indexed vector.
func (idx *Index) Len() int {
	return idx.rentals
}

// TextModel returns the model of the indexed text vectors.
func (idx *Index) TextModel() string {
	return idx.textModel
}

// ImageModel returns the model of the indexed image vectors.
func (idx *Index) ImageModel() string {
	return idx.imageModel
}

// Meta describes the index for persistence. Snapshot is left empty.
func (idx *Index) Meta() *storage.IndexMeta {
	return &storage.IndexMeta{
		BuiltAt:    idx.builtAt,
		TextModel:  idx.textModel,
		TextDim:    idx.textDim,
		ImageModel: idx.imageModel,
		ImageDim:   idx.imageDim,
		Rentals:    idx.rentals,
	}
}

// Save writes a gzip-compressed snapshot of the collections to path and
// returns the metadata needed to Load it back.
func (idx *Index) Save(path string) (*storage.IndexMeta, error) {
	if err := idx.db.ExportToFile(path, true, "", textCollection, imageCollection); err != nil {
		return nil, fmt.Errorf("saving index: %w", err)
	}
	meta := idx.Meta()
	meta.Snapshot = path
	return meta, nil
}

// Load restores an index saved with Save.
func Load(meta *storage.IndexMeta, opts Options) (*Index, error) {
	if meta == nil || meta.Snapshot == "" {
		return nil, fmt.Errorf("%w: no snapshot recorded", ErrSnapshotInvalid)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(meta.Snapshot, "", textCollection, imageCollection); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSnapshotInvalid, err)
	}
	text := db.GetCollection(textCollection, refuseText)
	images := db.GetCollection(imageCollection, refuseText)
	if text == nil || images == nil {
		return nil, fmt.Errorf("%w: missing collections in %s", ErrSnapshotInvalid, meta.Snapshot)
	}

	return &Index{
		db:         db,
		text:       text,
		images:     images,
		textModel:  meta.TextModel,
		textDim:    meta.TextDim,
		imageModel: meta.ImageModel,
		imageDim:   meta.ImageDim,
		rentals:    meta.Rentals,
		builtAt:    meta.BuiltAt,
		opts:       opts,
		logger:     opts.logger().With("component", "index"),
	}, nil
}

func checkSpace(emb core.Embedding, model string, dim int) error {
	if emb.Model != model {
		return fmt.Errorf("%w: query model %q, index model %q", ErrModelMismatch, emb.Model, model)
	}
	if dim != 0 && !emb.IsZero() && emb.Dim() != dim {
		return fmt.Errorf("%w: query dimension %d, index dimension %d", ErrModelMismatch, emb.Dim(), dim)
	}
	return nil
}

// query caps n at the collection size, which chromem requires.
func query(ctx context.Context, c *chromem.Collection, vector []float32, n int) ([]chromem.Result, error) {
	n = min(n, c.Count())
	if n == 0 {
		return nil, nil
	}
	return c.QueryEmbedding(ctx, vector, n, nil, nil)
}

// topHits sorts by similarity, ties by rental ID, and keeps k.
func topHits(best map[string]float64, k int) []Hit {
	hits := make([]Hit, 0, len(best))
	for id, s := range best {
		hits = append(hits, Hit{RentalID: id, Similarity: s})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
			return c
		}
		return cmp.Compare(a.RentalID, b.RentalID)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

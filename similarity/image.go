package similarity

import (
	"context"
	"fmt"

	"github.com/poiesic/rentmatch/core"
)

// NeutralImageScore is the image score when either listing has no usable
// images, so photo-less listings are neither rewarded nor punished.
const NeutralImageScore = 0.5

// ImageScorer scores the best-matching photo pair of two listings.
type ImageScorer struct {
	source EmbeddingSource
}

var (
	_ Scorer   = (*ImageScorer)(nil)
	_ Preparer = (*ImageScorer)(nil)
)

// NewImageScorer creates an ImageScorer reading embeddings from source.
func NewImageScorer(source EmbeddingSource) *ImageScorer {
	return &ImageScorer{source: source}
}

// Prepare embeds the sale listing's images.
func (s *ImageScorer) Prepare(ctx context.Context, sale *core.Listing) error {
	if len(sale.Images) == 0 {
		return nil
	}
	if _, err := imageEmbeddings(ctx, s.source, sale); err != nil {
		return fmt.Errorf("embedding sale images: %w", err)
	}
	return nil
}

// Score returns the maximum cosine similarity over every sale x rental image
// pair. The maximum is symmetric in its arguments.
func (s *ImageScorer) Score(ctx context.Context, sale, rental *core.Listing) (float64, error) {
	if len(sale.Images) == 0 || len(rental.Images) == 0 {
		return NeutralImageScore, nil
	}

	saleEmbeddings, err := imageEmbeddings(ctx, s.source, sale)
	if err != nil {
		return 0, scoringError(rental, ComponentImage, fmt.Errorf("sale: %w", err))
	}
	rentalEmbeddings, err := imageEmbeddings(ctx, s.source, rental)
	if err != nil {
		return 0, scoringError(rental, ComponentImage, err)
	}
	if len(saleEmbeddings) == 0 || len(rentalEmbeddings) == 0 {
		return NeutralImageScore, nil
	}

	best := 0.0
	for _, a := range saleEmbeddings {
		for _, b := range rentalEmbeddings {
			score, err := Cosine(a, b)
			if err != nil {
				return 0, scoringError(rental, ComponentImage, err)
			}
			best = max(best, score)
		}
	}
	return best, nil
}

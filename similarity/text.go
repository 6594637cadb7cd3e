package similarity

import (
	"context"
	"fmt"

	"github.com/poiesic/rentmatch/core"
)

// TextScorer compares the embeddings of Listing.Text().
type TextScorer struct {
	source EmbeddingSource
}

var (
	_ Scorer   = (*TextScorer)(nil)
	_ Preparer = (*TextScorer)(nil)
)

// NewTextScorer creates a TextScorer reading embeddings from source.
func NewTextScorer(source EmbeddingSource) *TextScorer {
	return &TextScorer{source: source}
}

// Prepare embeds the sale listing's text.
func (s *TextScorer) Prepare(ctx context.Context, sale *core.Listing) error {
	if _, err := textEmbedding(ctx, s.source, sale); err != nil {
		return fmt.Errorf("embedding sale text: %w", err)
	}
	return nil
}

// Score returns the clamped cosine similarity of the two text embeddings.
func (s *TextScorer) Score(ctx context.Context, sale, rental *core.Listing) (float64, error) {
	a, err := textEmbedding(ctx, s.source, sale)
	if err != nil {
		return 0, scoringError(rental, ComponentText, fmt.Errorf("sale: %w", err))
	}
	b, err := textEmbedding(ctx, s.source, rental)
	if err != nil {
		return 0, scoringError(rental, ComponentText, err)
	}
	score, err := Cosine(a, b)
	if err != nil {
		return 0, scoringError(rental, ComponentText, err)
	}
	return score, nil
}

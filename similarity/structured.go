package similarity

import (
	"context"
	"math"
	"strings"

	"github.com/poiesic/rentmatch/core"
)

// Internal weights of the structured score.
const (
	PriceWeight    = 0.4
	RoomsWeight    = 0.3
	LocationWeight = 0.3

	epsilon = 1e-9
)

// StructuredScorer compares price, room count and location. It never calls
// a model.
type StructuredScorer struct{}

var _ Scorer = StructuredScorer{}

// NewStructuredScorer creates a StructuredScorer.
func NewStructuredScorer() StructuredScorer {
	return StructuredScorer{}
}

// Score combines the three sub-scores with PriceWeight, RoomsWeight and
// LocationWeight. Malformed numbers on either side are a scoring error.
func (StructuredScorer) Score(ctx context.Context, sale, rental *core.Listing) (float64, error) {
	if err := core.ValidateNumbers(sale); err != nil {
		return 0, scoringError(rental, ComponentStructured, err)
	}
	if err := core.ValidateNumbers(rental); err != nil {
		return 0, scoringError(rental, ComponentStructured, err)
	}

	score := PriceWeight*RelativeSimilarity(sale.Price, rental.Price) +
		RoomsWeight*RelativeSimilarity(sale.Rooms, rental.Rooms) +
		LocationWeight*LocationSimilarity(sale.Location, rental.Location)
	return clamp01(score), nil
}

// RelativeSimilarity is 1 - min(1, |a-b| / max(a, b, ε)) for non-negative a and b.
func RelativeSimilarity(a, b float64) float64 {
	denominator := math.Max(math.Max(a, b), epsilon)
	return 1 - math.Min(1, math.Abs(a-b)/denominator)
}

// LocationSimilarity is 1 for a case-insensitive match, 0.5 when one place
// name contains the other and 0 otherwise. An empty name only matches
// another empty name.
func LocationSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	switch {
	case a == b:
		return 1
	case a == "" || b == "":
		return 0
	case strings.Contains(a, b) || strings.Contains(b, a):
		return 0.5
	}
	return 0
}

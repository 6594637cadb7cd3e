package similarity

import (
	"fmt"
	"math"

	"github.com/poiesic/rentmatch/core"
)

// Cosine returns the cosine similarity of a and b clamped to [0, 1].
// A zero vector on either side scores 0. Embeddings from different models or
// of different dimensions return core.ErrModelMismatch.
func Cosine(a, b core.Embedding) (float64, error) {
	if a.IsZero() || b.IsZero() {
		return 0, nil
	}
	if !a.Comparable(b) {
		return 0, fmt.Errorf("%w: %s/%d vs %s/%d", core.ErrModelMismatch, a.Model, a.Dim(), b.Model, b.Dim())
	}

	var dot, normA, normB float64
	for i := range a.Vector {
		x, y := float64(a.Vector[i]), float64(b.Vector[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	return clamp01(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

package match

import (
	"fmt"
	"math"

	"github.com/poiesic/rentmatch/core"
)

// weightTolerance is how far the weights may sum from 1.
const weightTolerance = 1e-6

// Weights blends the component scores into the final score.
type Weights struct {
	Text       float64 `json:"text"`
	Image      float64 `json:"image"`
	Structured float64 `json:"structured"`
}

// DefaultWeights returns text 0.5, image 0.3, structured 0.2.
func DefaultWeights() Weights {
	return Weights{Text: 0.5, Image: 0.3, Structured: 0.2}
}

// FastWeights leans on text, which is cheaper to embed than images.
func FastWeights() Weights {
	return Weights{Text: 0.6, Image: 0.2, Structured: 0.2}
}

// Validate checks that each weight is a non-negative number and that they
// sum to 1.
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"text", w.Text},
		{"image", w.Image},
		{"structured", w.Structured},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return &core.ConfigurationError{Field: "weights." + f.name, Reason: fmt.Sprintf("must be a non-negative number, got %v", f.value)}
		}
	}
	if sum := w.Text + w.Image + w.Structured; math.Abs(sum-1) > weightTolerance {
		return &core.ConfigurationError{Field: "weights", Reason: fmt.Sprintf("must sum to 1, got %v", sum)}
	}
	return nil
}

// Combine returns round(100 * weighted sum), clamped to [0, 100].
func (w Weights) Combine(text, image, structured float64) int {
	score := math.Round(100 * (w.Text*text + w.Image*image + w.Structured*structured))
	return int(max(0, min(100, score)))
}

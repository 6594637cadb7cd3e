package similarity

import (
	"context"
	"math"
	"testing"

	"github.com/poiesic/rentmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeSimilarity(t *testing.T) {
	tests := []struct {
		a, b, want float64
	}{
		{100, 100, 1},
		{0, 0, 1},
		{100, 50, 0.5},
		{50, 100, 0.5},
		{100, 0, 0},
		{4, 1, 0.25},
		{core.StudioRooms, 1, 0.5},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, RelativeSimilarity(tt.a, tt.b), 1e-9, "%v vs %v", tt.a, tt.b)
	}
}

func TestLocationSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"Florence, Italy", "florence, italy", 1},
		{"  Florence ", "FLORENCE", 1},
		{"Florence, Italy", "Florence", 0.5},
		{"Florence", "Florence, Italy", 0.5},
		{"Florence, Italy", "Berlin, Germany", 0},
		{"", "Berlin", 0},
		{"Berlin", "", 0},
		{"", "", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LocationSimilarity(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestStructuredScorer(t *testing.T) {
	scorer := NewStructuredScorer()
	ctx := context.Background()
	sale := &core.Listing{ID: "s", Price: 500000, Rooms: 4, Location: "Florence, Italy"}

	t.Run("self similarity", func(t *testing.T) {
		for _, l := range []*core.Listing{sale, {ID: "empty"}, {ID: "studio", Rooms: core.StudioRooms}} {
			score, err := scorer.Score(ctx, l, l)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, score, 1e-9)
		}
	})

	t.Run("weighted sum", func(t *testing.T) {
		rental := &core.Listing{ID: "r", Price: 250000, Rooms: 1, Location: "Florence"}
		score, err := scorer.Score(ctx, sale, rental)
		require.NoError(t, err)
		assert.InDelta(t, 0.4*0.5+0.3*0.25+0.3*0.5, score, 1e-9)
	})

	t.Run("malformed numbers", func(t *testing.T) {
		for _, rental := range []*core.Listing{
			{ID: "neg", Price: -1},
			{ID: "nan", Rooms: math.NaN()},
			{ID: "inf", Price: math.Inf(1)},
		} {
			_, err := scorer.Score(ctx, sale, rental)
			var scoringErr *core.ScoringError
			require.ErrorAs(t, err, &scoringErr, rental.ID)
			assert.Equal(t, ComponentStructured, scoringErr.Component)
			assert.Equal(t, rental.ID, scoringErr.RentalID)
		}
	})
}

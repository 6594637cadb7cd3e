package similarity

import (
	"context"
	"testing"

	"github.com/poiesic/rentmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageScorer(t *testing.T) {
	src := newStubSource()
	src.images["a"] = [][]float32{{1, 0, 0}, {0, 1, 0}}
	src.images["b"] = [][]float32{{0, 0, 1}, {0, 0.6, 0.8}}
	src.images["c"] = [][]float32{{0, 0, 1}}
	scorer := NewImageScorer(src)
	ctx := context.Background()

	a := &core.Listing{ID: "a", Images: []string{"a1", "a2"}}
	b := &core.Listing{ID: "b", Images: []string{"b1", "b2"}}
	c := &core.Listing{ID: "c", Images: []string{"c1"}}
	bare := &core.Listing{ID: "bare"}

	t.Run("maximum over pairs", func(t *testing.T) {
		score, err := scorer.Score(ctx, a, b)
		require.NoError(t, err)
		assert.InDelta(t, 0.6, score, 1e-6)
	})

	t.Run("symmetric", func(t *testing.T) {
		for _, pair := range [][2]*core.Listing{{a, b}, {a, c}, {b, c}, {a, bare}} {
			ab, err := scorer.Score(ctx, pair[0], pair[1])
			require.NoError(t, err)
			ba, err := scorer.Score(ctx, pair[1], pair[0])
			require.NoError(t, err)
			assert.Equal(t, ab, ba)
		}
	})

	t.Run("no images is neutral", func(t *testing.T) {
		score, err := scorer.Score(ctx, a, bare)
		require.NoError(t, err)
		assert.Equal(t, NeutralImageScore, score)

		score, err = scorer.Score(ctx, bare, bare)
		require.NoError(t, err)
		assert.Equal(t, NeutralImageScore, score)
		assert.Zero(t, src.imageCalls["bare"])
	})

	t.Run("all images failed is neutral", func(t *testing.T) {
		unreachable := &core.Listing{ID: "unreachable", Images: []string{"http://gone"}}
		score, err := scorer.Score(ctx, a, unreachable)
		require.NoError(t, err)
		assert.Equal(t, NeutralImageScore, score)
	})

	t.Run("source failure is a scoring error", func(t *testing.T) {
		src.imageErr["broken"] = errModelDown
		_, err := scorer.Score(ctx, a, &core.Listing{ID: "broken", Images: []string{"x"}})
		var scoringErr *core.ScoringError
		require.ErrorAs(t, err, &scoringErr)
		assert.Equal(t, ComponentImage, scoringErr.Component)
	})
}

func TestImageScorer_Prepare(t *testing.T) {
	src := newStubSource()
	scorer := NewImageScorer(src)
	ctx := WithMemo(context.Background())

	require.NoError(t, scorer.Prepare(ctx, &core.Listing{ID: "bare"}))
	assert.Zero(t, src.imageCalls["bare"])

	sale := &core.Listing{ID: "sale", Images: []string{"s1"}}
	require.NoError(t, scorer.Prepare(ctx, sale))
	_, err := scorer.Score(ctx, sale, &core.Listing{ID: "r", Images: []string{"r1"}})
	require.NoError(t, err)
	assert.Equal(t, 1, src.imageCalls["sale"])
}

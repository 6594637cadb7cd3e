package similarity

import (
	"context"
	"testing"

	"github.com/poiesic/rentmatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextScorer(t *testing.T) {
	src := newStubSource()
	src.text["sale"] = []float32{1, 0, 0}
	src.text["same"] = []float32{1, 0, 0}
	src.text["other"] = []float32{0, 1, 0}
	scorer := NewTextScorer(src)
	sale := &core.Listing{ID: "sale"}
	ctx := context.Background()

	t.Run("self similarity is maximal", func(t *testing.T) {
		score, err := scorer.Score(ctx, sale, sale)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, score, 1e-9)
	})

	t.Run("orthogonal texts", func(t *testing.T) {
		score, err := scorer.Score(ctx, sale, &core.Listing{ID: "other"})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, score, 1e-9)
	})

	t.Run("empty text scores zero", func(t *testing.T) {
		score, err := scorer.Score(ctx, sale, &core.Listing{ID: "blank"})
		require.NoError(t, err)
		assert.Equal(t, 0.0, score)
	})

	t.Run("rental failure is a scoring error", func(t *testing.T) {
		src.textErr["broken"] = errModelDown
		_, err := scorer.Score(ctx, sale, &core.Listing{ID: "broken"})
		var scoringErr *core.ScoringError
		require.ErrorAs(t, err, &scoringErr)
		assert.Equal(t, "broken", scoringErr.RentalID)
		assert.Equal(t, ComponentText, scoringErr.Component)
		assert.ErrorIs(t, err, errModelDown)
	})

	t.Run("mismatched models", func(t *testing.T) {
		src.text["wide"] = []float32{1, 0, 0, 0}
		_, err := scorer.Score(ctx, sale, &core.Listing{ID: "wide"})
		assert.ErrorIs(t, err, core.ErrModelMismatch)
	})
}

func TestTextScorer_MemoEmbedsOncePerRequest(t *testing.T) {
	src := newStubSource()
	src.text["sale"] = []float32{1, 0}
	src.text["r1"] = []float32{0, 1}
	scorer := NewTextScorer(src)
	sale := &core.Listing{ID: "sale"}
	rental := &core.Listing{ID: "r1"}

	ctx := WithMemo(context.Background())
	require.NoError(t, scorer.Prepare(ctx, sale))
	for range 3 {
		_, err := scorer.Score(ctx, sale, rental)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, src.textCalls["sale"])
	assert.Equal(t, 1, src.textCalls["r1"])

	// Without a memo every comparison goes to the source.
	_, err := scorer.Score(context.Background(), sale, rental)
	require.NoError(t, err)
	assert.Equal(t, 2, src.textCalls["sale"])
}

func TestTextScorer_PrepareFailure(t *testing.T) {
	src := newStubSource()
	src.textErr["sale"] = errModelDown
	err := NewTextScorer(src).Prepare(WithMemo(context.Background()), &core.Listing{ID: "sale"})
	assert.ErrorIs(t, err, errModelDown)
}

func TestMemoized(t *testing.T) {
	src := newStubSource()
	src.text["sale"] = []float32{1, 0}
	memoized := Memoized(src)
	sale := &core.Listing{ID: "sale", Images: []string{"x"}}

	ctx := WithMemo(context.Background())
	_, err := memoized.TextEmbedding(ctx, sale)
	require.NoError(t, err)
	_, err = memoized.ImageEmbeddings(ctx, sale)
	require.NoError(t, err)

	require.NoError(t, NewTextScorer(src).Prepare(ctx, sale))
	require.NoError(t, NewImageScorer(src).Prepare(ctx, sale))
	assert.Equal(t, 1, src.textCalls["sale"])
	assert.Equal(t, 1, src.imageCalls["sale"])
}

func TestWithMemo_KeepsExistingMemo(t *testing.T) {
	src := newStubSource()
	src.text["sale"] = []float32{1, 0}
	sale := &core.Listing{ID: "sale"}

	outer := WithMemo(context.Background())
	_, err := Memoized(src).TextEmbedding(outer, sale)
	require.NoError(t, err)

	inner := WithMemo(outer)
	require.NoError(t, NewTextScorer(src).Prepare(inner, sale))
	assert.Equal(t, 1, src.textCalls["sale"])
}

package rentmatch

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/rentmatch/ai/mock"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/match"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource []*core.Listing

func (s sliceSource) Listings(context.Context) ([]*core.Listing, error) {
	out := make([]*core.Listing, len(s))
	for i, l := range s {
		copied := *l
		out[i] = &copied
	}
	return out, nil
}

func testCatalog() sliceSource {
	return sliceSource{
		{ID: "r1", Title: "Four room flat", Description: "Near the Duomo", Price: 480000, Rooms: 4, Location: "Florence, Italy", URL: "https://www.booking.com/r1"},
		{ID: "r2", Title: "Studio", Description: "Compact", Price: 90, Rooms: core.StudioRooms, Location: "Berlin, Germany", URL: "https://www.airbnb.com/r2"},
		{ID: "r3", Title: "Loft", Description: "Industrial", Price: 1500, Rooms: 2, Location: "Milan, Italy", URL: "https://www.booking.com/r3"},
	}
}

func testSale() *core.Listing {
	return &core.Listing{
		Title:    "Four room apartment",
		Price:    500000,
		Rooms:    4,
		Location: "Florence, Italy",
		URL:      "https://www.zillow.com/sale/1",
	}
}

func newTestService(t *testing.T, opts ...Option) (*Service, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider()
	opts = append([]Option{WithInMemory(), WithProvider(provider)}, opts...)
	svc, err := New("", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, provider
}

func TestNew(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		svc, _ := newTestService(t)
		assert.NotNil(t, svc.Listings())
		assert.NotNil(t, svc.Embeddings())
		assert.Equal(t, DefaultConfig(), svc.Config())
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.FinalCandidates = 0
		_, err := New("", WithInMemory(), WithProvider(mock.NewMockProvider()), WithConfig(cfg))
		var cfgErr *core.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("on disk", func(t *testing.T) {
		svc, err := New(filepath.Join(t.TempDir(), "db"), WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		assert.NoError(t, svc.Close())
	})

	t.Run("without memory cache", func(t *testing.T) {
		svc, _ := newTestService(t, WithMemoryCache(0))
		assert.NotNil(t, svc.store)
	})
}

func TestImportCatalog(t *testing.T) {
	svc, provider := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportCatalog(ctx, nil)
	assert.ErrorIs(t, err, ErrSourceRequired)

	src := append(testCatalog(),
		&core.Listing{ID: "bad", Title: "Broken", Price: -1},
		&core.Listing{ID: "dup", Title: "Same page", URL: "https://www.booking.com/r1"},
	)
	report, err := svc.ImportCatalog(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, &ImportReport{Imported: 3, Changed: 3, Dropped: 2}, report)

	count, err := svc.Listings().CountListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	t.Run("unchanged import changes nothing", func(t *testing.T) {
		report, err := svc.ImportCatalog(ctx, testCatalog())
		require.NoError(t, err)
		assert.Zero(t, report.Changed)
	})

	t.Run("edited rental is re-embedded", func(t *testing.T) {
		_, err := svc.Match(ctx, testSale(), 3)
		require.NoError(t, err)
		embedder := provider.GetMockEmbedder()
		embedder.Reset()

		edited := testCatalog()
		edited[2].Description = "Industrial, renovated"
		report, err := svc.ImportCatalog(ctx, edited)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Changed)

		_, err = svc.Match(ctx, testSale(), 3)
		require.NoError(t, err)
		assert.Equal(t, 1, embedder.CallCount())
	})
}

func TestMatch_FullCatalog(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)

	sale := testSale()
	result, err := svc.Match(ctx, sale, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Candidates)
	assert.Len(t, result.Matches, 2)
	assert.Equal(t, "r1", result.Matches[0].RentalID)
	assert.Empty(t, sale.ID)

	_, err = svc.Match(ctx, &core.Listing{ID: "x", Price: -5}, 2)
	assert.ErrorIs(t, err, core.ErrInvalidListing)

	_, err = svc.Match(ctx, sale, 0)
	assert.ErrorIs(t, err, match.ErrInvalidTopK)
}

func TestMatch_TimeoutCoversIndexQuery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeout = 50 * time.Millisecond
	svc, provider := newTestService(t, WithConfig(cfg))
	ctx := context.Background()
	_, err := svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)
	_, err = svc.RebuildIndex(ctx)
	require.NoError(t, err)

	provider.GetMockEmbedder().EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "apartment") {
			time.Sleep(time.Second)
		}
		return mock.DeterministicVector(text, mock.DefaultDimension), nil
	}

	start := time.Now()
	result, err := svc.Match(ctx, testSale(), 5)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.True(t, result.Partial)
	assert.Equal(t, 3, result.Abandoned)
	assert.Empty(t, result.Matches)
	assert.Equal(t, match.OutcomeTimedOut, result.Outcome())
}

func TestMatch_CancelledDuringIndexQuery(t *testing.T) {
	svc, provider := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)
	_, err = svc.RebuildIndex(ctx)
	require.NoError(t, err)

	provider.GetMockEmbedder().EmbedTextFunc = func(_ context.Context, text string) ([]float32, error) {
		cancel()
		return mock.DeterministicVector(text, mock.DefaultDimension), nil
	}
	_, err = svc.Match(ctx, testSale(), 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMatch_WithIndex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TextTopK = 1
	cfg.ImageTopK = 1
	cfg.FinalCandidates = 1
	svc, _ := newTestService(t, WithConfig(cfg))
	ctx := context.Background()
	_, err := svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)

	idx, err := svc.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, idx.BuiltAt(), svc.IndexBuiltAt())

	result, err := svc.Match(ctx, testSale(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Candidates)

	t.Run("falls back to the catalog without candidates", func(t *testing.T) {
		blank := &core.Listing{ID: "blank"}
		result, err := svc.Match(ctx, blank, 5)
		require.NoError(t, err)
		assert.Equal(t, 3, result.Candidates)
	})

	t.Run("falls back to the catalog when candidates were removed", func(t *testing.T) {
		require.NoError(t, svc.RemoveListings(ctx, "r1"))
		result, err := svc.Match(ctx, testSale(), 5)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Candidates)
		assert.Equal(t, match.OutcomeMatched, result.Outcome())
	})
}

func TestMatchURL(t *testing.T) {
	ctx := context.Background()
	errScrape := errors.New("page layout changed")

	t.Run("requires an extractor", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, _, err := svc.MatchURL(ctx, "https://x", 5)
		assert.ErrorIs(t, err, ErrExtractorRequired)
	})

	t.Run("extraction failure", func(t *testing.T) {
		svc, _ := newTestService(t, WithExtractor(ExtractorFunc(func(context.Context, string) (*core.Listing, error) {
			return nil, errScrape
		})))
		_, _, err := svc.MatchURL(ctx, "https://x", 5)
		var extErr *core.ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.Equal(t, "https://x", extErr.URL)
		assert.ErrorIs(t, err, errScrape)
	})

	t.Run("invalid extracted listing", func(t *testing.T) {
		svc, _ := newTestService(t, WithExtractor(ExtractorFunc(func(context.Context, string) (*core.Listing, error) {
			return &core.Listing{Title: "Villa", Price: -1}, nil
		})))
		_, _, err := svc.MatchURL(ctx, "https://x", 5)
		var extErr *core.ExtractionError
		require.ErrorAs(t, err, &extErr)
		assert.ErrorIs(t, err, core.ErrInvalidListing)
	})

	t.Run("matches the extracted listing", func(t *testing.T) {
		svc, _ := newTestService(t, WithExtractor(ExtractorFunc(func(context.Context, string) (*core.Listing, error) {
			sale := testSale()
			sale.URL = ""
			return sale, nil
		})))
		_, err := svc.ImportCatalog(ctx, testCatalog())
		require.NoError(t, err)

		sale, result, err := svc.MatchURL(ctx, "https://www.zillow.com/sale/9", 5)
		require.NoError(t, err)
		assert.Equal(t, "https://www.zillow.com/sale/9", sale.URL)
		assert.NotEmpty(t, sale.ID)
		assert.Len(t, result.Matches, 3)
	})
}

func TestIndexStale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.ImportCatalog(ctx, testCatalog()[:2])
	require.NoError(t, err)

	stale, err := svc.IndexStale(ctx)
	require.NoError(t, err)
	assert.True(t, stale, "no index yet")

	_, err = svc.RebuildIndex(ctx)
	require.NoError(t, err)
	stale, err = svc.IndexStale(ctx)
	require.NoError(t, err)
	assert.False(t, stale)

	time.Sleep(2 * time.Millisecond)
	_, err = svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)
	stale, err = svc.IndexStale(ctx)
	require.NoError(t, err)
	assert.True(t, stale)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Listings)
	assert.Equal(t, 2, stats.IndexedRentals)
	assert.True(t, stats.IndexStale)
	assert.Equal(t, mock.TextModel, stats.TextModel)
}

func TestSaveAndLoadIndex(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	cfg := DefaultConfig()
	cfg.IndexPath = filepath.Join(dir, "index.gob.gz")
	ctx := context.Background()

	svc, err := New(dbPath, WithProvider(mock.NewMockProvider()), WithConfig(cfg))
	require.NoError(t, err)
	_, err = svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)
	idx, err := svc.RebuildIndex(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	t.Run("same models", func(t *testing.T) {
		svc, err := New(dbPath, WithProvider(mock.NewMockProvider()), WithConfig(cfg))
		require.NoError(t, err)
		defer svc.Close()

		loaded, err := svc.LoadIndex(ctx)
		require.NoError(t, err)
		assert.True(t, loaded)
		assert.True(t, idx.BuiltAt().Equal(svc.IndexBuiltAt()))
	})

	t.Run("other models", func(t *testing.T) {
		provider := mock.NewMockProvider().WithModels("text-v2", "image-v2")
		svc, err := New(dbPath, WithProvider(provider), WithConfig(cfg))
		require.NoError(t, err)
		defer svc.Close()

		loaded, err := svc.LoadIndex(ctx)
		require.NoError(t, err)
		assert.False(t, loaded)
		assert.True(t, svc.IndexBuiltAt().IsZero())
	})
}

func TestRemoveAndInvalidate(t *testing.T) {
	svc, provider := newTestService(t)
	ctx := context.Background()
	_, err := svc.ImportCatalog(ctx, testCatalog())
	require.NoError(t, err)

	n, err := svc.WarmEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	embedder := provider.GetMockEmbedder()
	embedder.Reset()
	require.NoError(t, svc.InvalidateEmbeddings(ctx, "r1"))
	n, err = svc.WarmEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, svc.InvalidateEmbeddings(ctx))
	n, err = svc.WarmEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, svc.RemoveListings(ctx, "r2"))
	count, err := svc.Listings().CountListings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

package badger

import (
	"context"
	"testing"

	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmbeddingRepo(t *testing.T) *EmbeddingRepository {
	t.Helper()
	_, embeddings, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return embeddings
}

func TestEmbeddingRepository_RoundTrip(t *testing.T) {
	repo := newEmbeddingRepo(t)
	ctx := context.Background()

	got, err := repo.GetEmbedding(ctx, "text/m/a")
	require.NoError(t, err)
	assert.Nil(t, got)

	record := &storage.EmbeddingRecord{
		Model:       "m",
		Fingerprint: core.FingerprintOf("a"),
		Vector:      []float32{0.6, 0.8},
	}
	require.NoError(t, repo.PutEmbedding(ctx, "text/m/a", record))

	got, err = repo.GetEmbedding(ctx, "text/m/a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record, got)
}

func TestEmbeddingRepository_Delete(t *testing.T) {
	repo := newEmbeddingRepo(t)
	ctx := context.Background()

	for _, key := range []string{"text/m1/a", "text/m1/b", "text/m2/a", "image/m1/x"} {
		require.NoError(t, repo.PutEmbedding(ctx, key, &storage.EmbeddingRecord{Model: "m", Vector: []float32{1}}))
	}

	require.NoError(t, repo.DeleteEmbeddings(ctx, "text/m1/a", "does-not-exist"))
	got, err := repo.GetEmbedding(ctx, "text/m1/a")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repo.DeleteEmbeddingPrefix(ctx, "text/"))
	for _, key := range []string{"text/m1/b", "text/m2/a"} {
		got, err := repo.GetEmbedding(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, got, key)
	}

	got, err = repo.GetEmbedding(ctx, "image/m1/x")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

package similarity

import (
	"context"
	"sync"

	"github.com/poiesic/rentmatch/core"
)

type memoKey struct{}

// memo holds one request's embeddings keyed by listing identity. Listings
// are immutable during a request, so the pointer is a sound key.
type memo struct {
	mu     sync.Mutex
	text   map[*core.Listing]*memoEntry[core.Embedding]
	images map[*core.Listing]*memoEntry[[]core.Embedding]
}

type memoEntry[T any] struct {
	once  sync.Once
	value T
	err   error
}

// WithMemo returns a context carrying a per-request embedding memo. A memo
// already attached to ctx is kept, so callers can share one request's
// embeddings with the engine.
func WithMemo(ctx context.Context) context.Context {
	if memoFrom(ctx) != nil {
		return ctx
	}
	return context.WithValue(ctx, memoKey{}, &memo{
		text:   make(map[*core.Listing]*memoEntry[core.Embedding]),
		images: make(map[*core.Listing]*memoEntry[[]core.Embedding]),
	})
}

func memoFrom(ctx context.Context) *memo {
	m, _ := ctx.Value(memoKey{}).(*memo)
	return m
}

func entry[T any](m *memo, table map[*core.Listing]*memoEntry[T], listing *core.Listing) *memoEntry[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := table[listing]
	if !ok {
		e = &memoEntry[T]{}
		table[listing] = e
	}
	return e
}

func textEmbedding(ctx context.Context, source EmbeddingSource, listing *core.Listing) (core.Embedding, error) {
	m := memoFrom(ctx)
	if m == nil {
		return source.TextEmbedding(ctx, listing)
	}
	e := entry(m, m.text, listing)
	e.once.Do(func() {
		e.value, e.err = source.TextEmbedding(ctx, listing)
	})
	return e.value, e.err
}

func imageEmbeddings(ctx context.Context, source EmbeddingSource, listing *core.Listing) ([]core.Embedding, error) {
	m := memoFrom(ctx)
	if m == nil {
		return source.ImageEmbeddings(ctx, listing)
	}
	e := entry(m, m.images, listing)
	e.once.Do(func() {
		e.value, e.err = source.ImageEmbeddings(ctx, listing)
	})
	return e.value, e.err
}

// memoSource routes lookups through the request memo.
type memoSource struct {
	source EmbeddingSource
}

// Memoized wraps source so that callers outside this package, such as the
// similarity index, share the request memo with the scorers.
func Memoized(source EmbeddingSource) EmbeddingSource {
	return memoSource{source: source}
}

func (m memoSource) TextEmbedding(ctx context.Context, listing *core.Listing) (core.Embedding, error) {
	return textEmbedding(ctx, m.source, listing)
}

func (m memoSource) ImageEmbeddings(ctx context.Context, listing *core.Listing) ([]core.Embedding, error) {
	return imageEmbeddings(ctx, m.source, listing)
}

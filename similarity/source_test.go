package similarity

import (
	"context"
	"errors"
	"sync"

	"github.com/poiesic/rentmatch/core"
)

const testModel = "test-model"

// stubSource serves fixed vectors keyed by listing ID and counts calls.
type stubSource struct {
	mu         sync.Mutex
	text       map[string][]float32
	images     map[string][][]float32
	textErr    map[string]error
	imageErr   map[string]error
	textCalls  map[string]int
	imageCalls map[string]int
}

func newStubSource() *stubSource {
	return &stubSource{
		text:       make(map[string][]float32),
		images:     make(map[string][][]float32),
		textErr:    make(map[string]error),
		imageErr:   make(map[string]error),
		textCalls:  make(map[string]int),
		imageCalls: make(map[string]int),
	}
}

func (s *stubSource) TextEmbedding(ctx context.Context, l *core.Listing) (core.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textCalls[l.ID]++
	if err := s.textErr[l.ID]; err != nil {
		return core.Embedding{}, err
	}
	return core.NewEmbedding(testModel, s.text[l.ID]), nil
}

func (s *stubSource) ImageEmbeddings(ctx context.Context, l *core.Listing) ([]core.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageCalls[l.ID]++
	if err := s.imageErr[l.ID]; err != nil {
		return nil, err
	}
	var out []core.Embedding
	for _, v := range s.images[l.ID] {
		out = append(out, core.NewEmbedding(testModel, v))
	}
	return out, nil
}

var errModelDown = errors.New("model down")

package match

import (
	"context"
	"errors"
	"sync"

	"github.com/poiesic/rentmatch/core"
)

const testModel = "test-model"

var errModelDown = errors.New("model down")

// vectorSource serves fixed vectors keyed by listing ID.
type vectorSource struct {
	mu        sync.Mutex
	text      map[string][]float32
	images    map[string][][]float32
	textErr   map[string]error
	textCalls map[string]int
}

func newVectorSource() *vectorSource {
	return &vectorSource{
		text:      make(map[string][]float32),
		images:    make(map[string][][]float32),
		textErr:   make(map[string]error),
		textCalls: make(map[string]int),
	}
}

func (s *vectorSource) TextEmbedding(ctx context.Context, l *core.Listing) (core.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textCalls[l.ID]++
	if err := s.textErr[l.ID]; err != nil {
		return core.Embedding{}, err
	}
	return core.NewEmbedding(testModel, s.text[l.ID]), nil
}

func (s *vectorSource) ImageEmbeddings(ctx context.Context, l *core.Listing) ([]core.Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Embedding
	for _, v := range s.images[l.ID] {
		out = append(out, core.NewEmbedding(testModel, v))
	}
	return out, nil
}

func (s *vectorSource) calls(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textCalls[id]
}

type scorerFunc func(ctx context.Context, sale, rental *core.Listing) (float64, error)

func (f scorerFunc) Score(ctx context.Context, sale, rental *core.Listing) (float64, error) {
	return f(ctx, sale, rental)
}

func constant(v float64) scorerFunc {
	return func(context.Context, *core.Listing, *core.Listing) (float64, error) {
		return v, nil
	}
}

// byID scores each rental from a table; unknown IDs fail.
func byID(scores map[string]float64) scorerFunc {
	return func(_ context.Context, _, rental *core.Listing) (float64, error) {
		s, ok := scores[rental.ID]
		if !ok {
			return 0, &core.ScoringError{RentalID: rental.ID, Component: "text", Err: errModelDown}
		}
		return s, nil
	}
}

// recordingMonitor counts hook calls.
type recordingMonitor struct {
	mu       sync.Mutex
	started  int
	scored   int
	skipped  []*core.ScoringError
	finished []*Result
	failed   []error
}

func (m *recordingMonitor) Start(string, *core.Listing, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMonitor) Scored(string, *core.MatchResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored++
}

func (m *recordingMonitor) Skipped(_ string, err *core.ScoringError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped = append(m.skipped, err)
}

func (m *recordingMonitor) Finish(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, r)
}

func saleListing() *core.Listing {
	return &core.Listing{
		ID:       "sale",
		Title:    "Four room apartment",
		Price:    500000,
		Rooms:    4,
		Location: "Florence, Italy",
		Images:   []string{"img1"},
	}
}

func rentals(ids ...string) []*core.Listing {
	out := make([]*core.Listing, len(ids))
	for i, id := range ids {
		out[i] = &core.Listing{ID: id, Title: id, Price: 100, Rooms: 1}
	}
	return out
}

func matchIDs(matches []*core.MatchResult) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.RentalID
	}
	return ids
}

func (m *recordingMonitor) Fail(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, err)
}

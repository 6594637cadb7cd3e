package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/match"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMonitor(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(reg)

	m.Start("req-1", &core.Listing{ID: "sale"}, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inflight))

	m.Scored("req-1", &core.MatchResult{RentalID: "a", FinalScore: 85})
	m.Scored("req-1", &core.MatchResult{RentalID: "b", FinalScore: 20})
	m.Skipped("req-1", &core.ScoringError{RentalID: "c", Component: "image"})
	m.Finish(&match.Result{
		RequestID:  "req-1",
		Matches:    []*core.MatchResult{{RentalID: "a"}, {RentalID: "b"}},
		Candidates: 4,
		Skipped:    1,
		Abandoned:  1,
		Partial:    true,
		Elapsed:    120 * time.Millisecond,
	})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("image")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.abandoned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("matched")))
}

func TestMonitor_Fail(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMonitor(reg)

	m.Start("req-1", nil, 1)
	m.Fail("req-1", context.Canceled)
	m.Start("req-2", nil, 1)
	m.Fail("req-2", errors.New("model down"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("cancelled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("error")))
}

func TestMonitor_UnknownComponent(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())
	m.Skipped("req", &core.ScoringError{RentalID: "x"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped.WithLabelValues("unknown")))
}

func TestNewMonitor_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMonitor(prometheus.NewRegistry())
		NewMonitor(prometheus.NewRegistry())
	})
}

func TestMonitor_WithEngine(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())
	constant := scorer(0.5)
	e, err := match.NewEngine(constant, constant, constant, match.WithMonitor(m))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Release()

	_, err = e.Match(context.Background(), &core.Listing{ID: "sale"}, []*core.Listing{{ID: "a"}, {ID: "b"}}, 5)
	assert.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.scored))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("matched")))
}

type scorer float64

func (s scorer) Score(context.Context, *core.Listing, *core.Listing) (float64, error) {
	return float64(s), nil
}

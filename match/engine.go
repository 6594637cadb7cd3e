// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package match

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/similarity"
)

// DefaultConcurrency is the number of candidates scored at once per engine.
const DefaultConcurrency = 4

// Engine scores and ranks rentals. It is safe for concurrent use.
type Engine struct {
	text       similarity.Scorer
	image      similarity.Scorer
	structured similarity.Scorer
	weights    Weights
	pool       *ants.Pool
	poolSize   int
	timeout    time.Duration
	dedupeURLs bool
	monitor    Monitor
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine) error

// WithWeights sets the component weights.
// Default is DefaultWeights().
func WithWeights(w Weights) Option {
	return func(e *Engine) error {
		if err := w.Validate(); err != nil {
			return err
		}
		e.weights = w
		return nil
	}
}

// WithConcurrency bounds the candidates scored at once across all requests.
// Default is DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(e *Engine) error {
		if n < 1 {
			return &core.ConfigurationError{Field: "concurrency", Reason: "must be at least 1"}
		}
		e.poolSize = n
		return nil
	}
}

// WithTimeout bounds each request. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) error {
		if d < 0 {
			return &core.ConfigurationError{Field: "timeout", Reason: "must not be negative"}
		}
		e.timeout = d
		return nil
	}
}

// WithURLDedupe controls whether rentals sharing a URL collapse to the best
// ranked one. Default is true.
func WithURLDedupe(enabled bool) Option {
	return func(e *Engine) error {
		e.dedupeURLs = enabled
		return nil
	}
}

// WithMonitor sets a monitor notified of every request.
func WithMonitor(monitor Monitor) Option {
	return func(e *Engine) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		e.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEngine creates an engine from the three similarity components.
// Invalid configuration fails here, before anything is scored.
func NewEngine(text, image, structured similarity.Scorer, opts ...Option) (*Engine, error) {
	if text == nil {
		return nil, ErrTextScorerRequired
	}
	if image == nil {
		return nil, ErrImageScorerRequired
	}
	if structured == nil {
		return nil, ErrStructuredScorerRequired
	}

	e := &Engine{
		text:       text,
		image:      image,
		structured: structured,
		weights:    DefaultWeights(),
		poolSize:   DefaultConcurrency,
		dedupeURLs: true,
		monitor:    &noopMonitor{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if err := e.weights.Validate(); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(e.poolSize)
	if err != nil {
		return nil, err
	}
	e.pool = pool
	e.logger = e.logger.With("component", "match")
	return e, nil
}

// Weights returns the weights in use.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Release stops the worker pool. The engine must not be used afterwards.
func (e *Engine) Release() {
	e.pool.Release()
}

// Match scores candidates against sale and returns the best topK.
//
// Rentals that fail to score are skipped and counted in Result.Skipped.
// When the request deadline passes, candidates not yet started are counted
// in Result.Abandoned and the ranking computed so far is returned with
// Result.Partial set. When ctx is cancelled the context error is returned.
func (e *Engine) Match(ctx context.Context, sale *core.Listing, candidates []*core.Listing, topK int) (*Result, error) {
	if topK < 1 {
		return nil, ErrInvalidTopK
	}
	if err := core.ValidateListing(sale); err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result{
		RequestID:  uuid.NewString(),
		Matches:    []*core.MatchResult{},
		Candidates: len(candidates),
	}
	logger := e.logger.With("request", result.RequestID)
	e.monitor.Start(result.RequestID, sale, len(candidates))

	if len(candidates) == 0 {
		result.Elapsed = time.Since(start)
		e.monitor.Finish(result)
		return result, nil
	}

	ctx = similarity.WithMemo(ctx)
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := e.prepare(ctx, sale); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.Canceled) {
			logger.Warn("deadline passed while preparing sale listing", "err", err)
			result.Abandoned = len(candidates)
			result.Partial = true
			result.Elapsed = time.Since(start)
			e.monitor.Finish(result)
			return result, nil
		}
		e.monitor.Fail(result.RequestID, err)
		return nil, err
	}

	scored := make([]*core.MatchResult, len(candidates))
	var skipped, abandoned atomic.Int64
	var wg sync.WaitGroup

	for i, rental := range candidates {
		if ctx.Err() != nil {
			abandoned.Add(int64(len(candidates) - i))
			break
		}
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				abandoned.Add(1)
				return
			}
			match, err := e.score(ctx, sale, rental)
			if err != nil {
				var scoringErr *core.ScoringError
				if !errors.As(err, &scoringErr) {
					scoringErr = &core.ScoringError{RentalID: rentalID(rental), Err: err}
				}
				logger.Warn("skipping rental", "rental", scoringErr.RentalID, "component", scoringErr.Component, "err", scoringErr.Err)
				skipped.Add(1)
				e.monitor.Skipped(result.RequestID, scoringErr)
				return
			}
			scored[i] = match
			e.monitor.Scored(result.RequestID, match)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			err = fmt.Errorf("submitting candidate: %w", err)
			e.monitor.Fail(result.RequestID, err)
			return nil, err
		}
	}
	wg.Wait()

	result.Skipped = int(skipped.Load())
	result.Abandoned = int(abandoned.Load())
	if result.Abandoned > 0 {
		if err := ctx.Err(); errors.Is(err, context.Canceled) {
			e.monitor.Fail(result.RequestID, err)
			return nil, err
		}
		result.Partial = true
		logger.Warn("request deadline passed", "abandoned", result.Abandoned, "candidates", len(candidates))
	}

	result.Matches = e.rank(scored, topK)
	result.Elapsed = time.Since(start)
	logger.Debug("match finished",
		"candidates", result.Candidates,
		"matches", len(result.Matches),
		"skipped", result.Skipped,
		"elapsed", result.Elapsed)
	e.monitor.Finish(result)
	return result, nil
}

func (e *Engine) prepare(ctx context.Context, sale *core.Listing) error {
	for _, scorer := range []similarity.Scorer{e.text, e.image, e.structured} {
		if p, ok := scorer.(similarity.Preparer); ok {
			if err := p.Prepare(ctx, sale); err != nil {
				return err
			}
		}
	}
	return nil
}

// score runs all three components for one rental. Once started, a rental is
// scored to the end even if the request is cancelled meanwhile.
func (e *Engine) score(ctx context.Context, sale, rental *core.Listing) (*core.MatchResult, error) {
	if rental == nil {
		return nil, &core.ScoringError{Err: core.ErrInvalidListing}
	}
	ctx = context.WithoutCancel(ctx)

	text, err := e.text.Score(ctx, sale, rental)
	if err != nil {
		return nil, err
	}
	image, err := e.image.Score(ctx, sale, rental)
	if err != nil {
		return nil, err
	}
	structured, err := e.structured.Score(ctx, sale, rental)
	if err != nil {
		return nil, err
	}

	return &core.MatchResult{
		RentalID:        rental.ID,
		Platform:        rental.Platform,
		URL:             rental.URL,
		TextScore:       text,
		ImageScore:      image,
		StructuredScore: structured,
		FinalScore:      e.weights.Combine(text, image, structured),
	}, nil
}

// rank orders the scored rentals, collapses duplicate URLs and keeps topK.
func (e *Engine) rank(scored []*core.MatchResult, topK int) []*core.MatchResult {
	ranked := make([]*core.MatchResult, 0, len(scored))
	for _, m := range scored {
		if m != nil {
			ranked = append(ranked, m)
		}
	}
	slices.SortFunc(ranked, func(a, b *core.MatchResult) int {
		if c := cmp.Compare(b.FinalScore, a.FinalScore); c != 0 {
			return c
		}
		return cmp.Compare(a.RentalID, b.RentalID)
	})

	if e.dedupeURLs {
		seen := make(map[string]struct{}, len(ranked))
		ranked = slices.DeleteFunc(ranked, func(m *core.MatchResult) bool {
			if m.URL == "" {
				return false
			}
			if _, dup := seen[m.URL]; dup {
				return true
			}
			seen[m.URL] = struct{}{}
			return false
		})
	}

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func rentalID(rental *core.Listing) string {
	if rental == nil {
		return ""
	}
	return rental.ID
}

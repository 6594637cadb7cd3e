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


package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Guard protects calls to one model collaborator with a rate limiter,
// a circuit breaker and retries with exponential backoff.
// The breaker wraps the whole retry loop, so an open breaker fails fast.
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	config  *Config
	logger  *slog.Logger
}

// NewGuard creates a Guard for the named collaborator. It logs to
// config.Logger, or slog.Default() when that is nil.
func NewGuard(name string, config *Config) *Guard {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "guard", "name", name)

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "from", from.String(), "to", to.String())
		},
		// Bad input and abandoned requests say nothing about the service's health.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err) ||
				errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	}

	g := &Guard{
		breaker: gobreaker.NewCircuitBreaker(settings),
		config:  config,
		logger:  logger,
	}
	if config.RequestsPerSecond > 0 {
		burst := int(config.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}
	return g
}

// Do runs op under the guard.
func (g *Guard) Do(ctx context.Context, op func(ctx context.Context) ([]float32, error)) ([]float32, error) {
	out, err := g.breaker.Execute(func() (interface{}, error) {
		var vector []float32
		err := RetryWithBackoff(ctx, func() error {
			if g.limiter != nil {
				if err := g.limiter.Wait(ctx); err != nil {
					return err
				}
			}
			var opErr error
			vector, opErr = op(ctx)
			return opErr
		}, g.config.MaxRetries, g.config.RetryDelay)
		return vector, err
	})
	if err != nil {
		return nil, fmt.Errorf("breaker (%s): %w", g.breaker.Name(), err)
	}
	return out.([]float32), nil
}

// State returns the breaker state, for diagnostics.
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// GuardedEmbedder runs an Embedder behind a Guard.
type GuardedEmbedder struct {
	inner Embedder
	guard *Guard
}

var _ Embedder = (*GuardedEmbedder)(nil)

// NewGuardedEmbedder wraps inner with guard.
func NewGuardedEmbedder(inner Embedder, guard *Guard) *GuardedEmbedder {
	return &GuardedEmbedder{inner: inner, guard: guard}
}

// EmbedText embeds one text under the guard.
func (e *GuardedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.guard.Do(ctx, func(ctx context.Context) ([]float32, error) {
		return e.inner.EmbedText(ctx, text)
	})
}

// EmbedTexts embeds a batch, one guarded call per text so a single failure is retried alone.
func (e *GuardedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vector, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vector
	}
	return out, nil
}

// GuardedImageEmbedder runs an ImageEmbedder behind a Guard.
type GuardedImageEmbedder struct {
	inner ImageEmbedder
	guard *Guard
}

var _ ImageEmbedder = (*GuardedImageEmbedder)(nil)

// NewGuardedImageEmbedder wraps inner with guard.
func NewGuardedImageEmbedder(inner ImageEmbedder, guard *Guard) *GuardedImageEmbedder {
	return &GuardedImageEmbedder{inner: inner, guard: guard}
}

// EmbedImage embeds one image under the guard.
func (e *GuardedImageEmbedder) EmbedImage(ctx context.Context, ref string) ([]float32, error) {
	return e.guard.Do(ctx, func(ctx context.Context) ([]float32, error) {
		return e.inner.EmbedImage(ctx, ref)
	})
}

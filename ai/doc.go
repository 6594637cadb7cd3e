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


// Package ai provides abstractions for the embedding model collaborators.
//
// The matching engine never loads a model itself. Text and image embeddings
// come from external services behind three interfaces:
//
//   - Embedder: turns text into a vector
//   - ImageEmbedder: turns an image reference (URL or data URI) into a vector
//   - Provider: aggregates both and reports the model tag of each vector space
//
// A Provider is created once per process and injected into the components
// that need it.
//
// # Implementation Packages
//
//   - ai/openai: production implementation using OpenAI-compatible APIs
//   - ai/mock: test doubles for unit testing without external services
//
// # Resilience
//
// Model calls are the only slow, failure-prone operations in a match request.
// Guard combines a token bucket rate limiter, a circuit breaker and
// RetryWithBackoff. GuardedEmbedder and GuardedImageEmbedder apply it to any
// implementation:
//
//	guard := ai.NewGuard("text-embedding", config)
//	embedder := ai.NewGuardedEmbedder(inner, guard)
//
// Errors wrapped with Permanent (bad image reference, oversized image) are
// neither retried nor counted against the breaker.
package ai

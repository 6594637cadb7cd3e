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


// Package similarity scores one sale listing against one rental.
//
// Three independent components each return a value in [0, 1]:
//
//   - TextScorer: cosine similarity of the listings' text embeddings
//   - ImageScorer: best pairwise cosine over the two image sets
//   - StructuredScorer: price, rooms and location compared without models
//
// Embeddings come from an EmbeddingSource. Wrap a request's context with
// WithMemo so each listing is embedded at most once per request no matter
// how many comparisons it takes part in.
package similarity

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


// Package storage provides the storage abstraction layer for rentmatch.
//
// The interfaces here decouple the rental catalog, the embedding cache and
// the index watermark from the engine that consumes them.
//
// # Architecture
//
//   - ListingRepository: the rental catalog, keyed by listing ID
//   - EmbeddingRepository: a key-value cache of model-tagged vectors
//   - IndexMetaRepository: the last similarity index build
//
// The badger subpackage implements all three on one BadgerDB instance.
// The cache package layers memory and Redis tiers over EmbeddingRepository.
//
// # Usage
//
//	listings, embeddings, backend, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage

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


// Package cache layers fast tiers in front of the persistent embedding store.
//
// Each tier implements storage.EmbeddingRepository:
//
//   - Memory: an in-process ristretto cache bounded by vector bytes
//   - Redis: a shared cache with a TTL, for several processes on one catalog
//
// Tiered stacks them, fastest first, and backfills faster tiers on a hit
// further down.
package cache

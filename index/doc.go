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


// Package index narrows the rental catalog to a short candidate list before
// full scoring.
//
// An Index holds two in-memory chromem-go collections: one document per
// rental for text, one document per image for images. It only ranks by
// raw embedding similarity and never produces final scores; the matching
// engine rescores every candidate it returns.
//
// Indexes are immutable once built. Rebuilding produces a new Index that is
// published through a Holder:
//
//	idx, err := index.Build(ctx, rentals, embeddings, index.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	holder.Swap(idx)
//
// Queries already running against the previous Index finish against it.
package index

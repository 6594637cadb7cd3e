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

import "errors"

var (
	// ErrTextScorerRequired is returned when a text scorer is not provided.
	ErrTextScorerRequired = errors.New("text scorer required")

	// ErrImageScorerRequired is returned when an image scorer is not provided.
	ErrImageScorerRequired = errors.New("image scorer required")

	// ErrStructuredScorerRequired is returned when a structured scorer is not provided.
	ErrStructuredScorerRequired = errors.New("structured scorer required")

	// ErrInvalidTopK is returned when fewer than one match is requested.
	ErrInvalidTopK = errors.New("topK must be at least 1")
)

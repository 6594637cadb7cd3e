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


package mock

import "github.com/poiesic/rentmatch/ai"

const (
	// TextModel is the model tag reported by MockProvider for text vectors.
	TextModel = "mock-text-v1"

	// ImageModel is the model tag reported by MockProvider for image vectors.
	ImageModel = "mock-image-v1"
)

// MockProvider is a test double for ai.Provider.
// It aggregates mock text and image embedders.
type MockProvider struct {
	embedder      *MockEmbedder
	imageEmbedder *MockImageEmbedder
	textModel     string
	imageModel    string
}

// NewMockProvider creates a new mock provider with default mock services.
//
// Returns the concrete type so tests can reach the mocks for assertions.
func NewMockProvider() *MockProvider {
	return NewMockProviderWithServices(NewMockEmbedder(), NewMockImageEmbedder())
}

// NewMockProviderWithServices creates a mock provider with custom mock services.
func NewMockProviderWithServices(embedder *MockEmbedder, imageEmbedder *MockImageEmbedder) *MockProvider {
	return &MockProvider{
		embedder:      embedder,
		imageEmbedder: imageEmbedder,
		textModel:     TextModel,
		imageModel:    ImageModel,
	}
}

// WithModels overrides the reported model tags, e.g. to simulate a model upgrade.
func (p *MockProvider) WithModels(textModel, imageModel string) *MockProvider {
	p.textModel = textModel
	p.imageModel = imageModel
	return p
}

// Embedder returns the mock text embedder.
func (p *MockProvider) Embedder() ai.Embedder {
	return p.embedder
}

// ImageEmbedder returns the mock image embedder.
func (p *MockProvider) ImageEmbedder() ai.ImageEmbedder {
	return p.imageEmbedder
}

// TextModel returns the text model tag.
func (p *MockProvider) TextModel() string {
	return p.textModel
}

// ImageModel returns the image model tag.
func (p *MockProvider) ImageModel() string {
	return p.imageModel
}

// Close is a no-op for mock provider.
func (p *MockProvider) Close() error {
	return nil
}

// GetMockEmbedder returns the underlying mock text embedder for test assertions.
func (p *MockProvider) GetMockEmbedder() *MockEmbedder {
	return p.embedder
}

// GetMockImageEmbedder returns the underlying mock image embedder for test assertions.
func (p *MockProvider) GetMockImageEmbedder() *MockImageEmbedder {
	return p.imageEmbedder
}

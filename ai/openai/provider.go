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


package openai

import (
	"log/slog"

	"github.com/poiesic/rentmatch/ai"
)

// Provider implements ai.Provider using OpenAI-compatible services.
// Both embedders run behind an ai.Guard.
type Provider struct {
	config        *ai.Config
	embedder      ai.Embedder
	imageEmbedder ai.ImageEmbedder
	logger        *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.Provider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	imageEmbedder, err := newImageEmbedder(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:        config,
		embedder:      ai.NewGuardedEmbedder(embedder, ai.NewGuard("text-embedding", config)),
		imageEmbedder: ai.NewGuardedImageEmbedder(imageEmbedder, ai.NewGuard("image-embedding", config)),
		logger:        config.Logger.With("component", "openai-provider"),
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// ImageEmbedder returns the image embedding service.
func (p *Provider) ImageEmbedder() ai.ImageEmbedder {
	return p.imageEmbedder
}

// TextModel returns the text model tag.
func (p *Provider) TextModel() string {
	return p.config.EmbeddingModel
}

// ImageModel returns the image model tag.
func (p *Provider) ImageModel() string {
	return p.config.ImageModel
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}

// Package embeddingutils builds the configured embeddings.Embedder.
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/storyline/pkg/embeddings"
	"github.com/papercomputeco/storyline/pkg/embeddings/ollama"
)

// NewEmbedderOpts selects and configures an embedding provider.
type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
}

// NewEmbedder returns the embedder for o.ProviderType.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case "ollama":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", o.ProviderType)
	}
}

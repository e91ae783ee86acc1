// Package embeddingutils builds embedders from configuration.
package embeddingutils

import (
	"fmt"
	"time"

	"github.com/papercomputeco/gleaner/pkg/embeddings"
	"github.com/papercomputeco/gleaner/pkg/embeddings/cached"
	"github.com/papercomputeco/gleaner/pkg/embeddings/ollama"
	"github.com/papercomputeco/gleaner/pkg/embeddings/openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   int

	// CacheTTL enables the in-memory cache when positive.
	CacheTTL time.Duration
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var (
		e   embeddings.Embedder
		err error
	)
	switch o.ProviderType {
	case "ollama":
		e, err = ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case "openai":
		e, err = openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if o.CacheTTL > 0 {
		e = cached.NewEmbedder(e, o.CacheTTL)
	}
	return e, nil
}

// Package openai implements embeddings.Embedder with the OpenAI embeddings
// API, or any server that speaks it.
package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/gleaner/pkg/embeddings"
	"github.com/papercomputeco/gleaner/pkg/retry"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

// DefaultEmbeddingModel is used when no model is configured.
const DefaultEmbeddingModel = string(goopenai.SmallEmbedding3)

// EmbedderConfig configures the OpenAI embedder.
type EmbedderConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for a compatible gateway.
	BaseURL string

	Model string

	// Dimensions requests shortened embeddings from text-embedding-3 models.
	Dimensions int

	Retry *retry.Policy
}

// Embedder calls the embeddings endpoint through go-openai.
type Embedder struct {
	client     *goopenai.Client
	model      goopenai.EmbeddingModel
	dimensions int
	policy     retry.Policy
}

// NewEmbedder creates an OpenAI embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai embedder requires an API key")
	}

	clientConfig := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	policy := retry.DefaultPolicy
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	return &Embedder{
		client:     goopenai.NewClientWithConfig(clientConfig),
		model:      goopenai.EmbeddingModel(model),
		dimensions: cfg.Dimensions,
		policy:     policy,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp goopenai.EmbeddingResponse
	err := retry.Do(ctx, e.policy, func() error {
		var err error
		resp, err = e.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
			Input:      []string{text},
			Model:      e.model,
			Dimensions: e.dimensions,
		})
		if err != nil && !retryable(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}
	return resp.Data[0].Embedding, nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

// retryable treats rate limits, server errors and transport failures as
// transient.
func retryable(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retry.RetryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retry.RetryableStatus(reqErr.HTTPStatusCode)
	}
	return true
}

var _ embeddings.Embedder = (*Embedder)(nil)

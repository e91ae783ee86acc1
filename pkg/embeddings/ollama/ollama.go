// Package ollama implements embeddings.Embedder against Ollama's /api/embed.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/gleaner/pkg/embeddings"
	"github.com/papercomputeco/gleaner/pkg/retry"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

const (
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "nomic-embed-text"

	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"
)

// EmbedderConfig holds configuration for the Ollama embedder.
type EmbedderConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultEmbeddingModel.
	Model string

	// Retry overrides retry.DefaultPolicy.
	Retry *retry.Policy
}

// Embedder wraps Ollama's embedding API.
type Embedder struct {
	baseURL    string
	model      string
	policy     retry.Policy
	httpClient *http.Client
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbedder creates a new embedder using Ollama's embedding API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	e := &Embedder{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		policy:     retry.DefaultPolicy,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if e.baseURL == "" {
		e.baseURL = DefaultBaseURL
	}
	if e.model == "" {
		e.model = DefaultEmbeddingModel
	}
	if cfg.Retry != nil {
		e.policy = *cfg.Retry
	}
	return e, nil
}

// Embed converts text into a vector embedding. Transport failures, 429s and
// 5xx responses are retried.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Input: text})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %w", vector.ErrEmbedding, err)
	}

	var out embedResponse
	err = retry.Do(ctx, e.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			msg, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, msg)
			if retry.RetryableStatus(resp.StatusCode) {
				return err
			}
			return retry.Permanent(err)
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return retry.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}

	if len(out.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", vector.ErrEmbedding)
	}
	return out.Embeddings[0], nil
}

// Close is a no-op; the HTTP client holds no resources that need releasing.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)

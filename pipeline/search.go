package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/papercomputeco/gleaner/pkg/memory"
	"github.com/papercomputeco/gleaner/pkg/vector"
)

// DefaultSearchLimit is used when Search is called with k <= 0.
const DefaultSearchLimit = 5

// SearchResult is a persisted claim or action ranked by similarity.
type SearchResult struct {
	Kind           string  `json:"kind"`
	ID             string  `json:"id"`
	Text           string  `json:"text"`
	ConversationID string  `json:"conversation_id"`
	Score          float64 `json:"score"`
}

// Search finds the k persisted items most similar to query, restricted to
// kind ("claim" or "action") unless kind is empty. It uses the vector index
// when one is configured and otherwise scans storage.
func (p *Pipeline) Search(ctx context.Context, query string, k int, kind string) ([]SearchResult, error) {
	if k <= 0 {
		k = DefaultSearchLimit
	}

	emb, err := p.config.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", vector.ErrEmbedding, err)
	}

	var (
		claims  []memory.Claim
		actions []memory.Action
	)
	if kind == "" || kind == vector.KindClaim {
		claims, err = p.config.Memory.ListClaims(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("listing claims: %w", err)
		}
	}
	if kind == "" || kind == vector.KindAction {
		actions, err = p.config.Memory.ListActions(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing actions: %w", err)
		}
	}

	if p.config.Vectors != nil {
		results, err := p.searchIndex(ctx, emb, k, claims, actions)
		if err == nil {
			return results, nil
		}
		p.logger.Warn("vector search failed, scanning storage", "error", err)
	}

	return p.scan(ctx, emb, k, claims, actions), nil
}

func (p *Pipeline) searchIndex(ctx context.Context, emb []float32, k int, claims []memory.Claim, actions []memory.Action) ([]SearchResult, error) {
	// Over-fetch since hits of the other kind are filtered out below.
	hits, err := p.config.Vectors.Query(ctx, emb, k*4)
	if err != nil {
		return nil, err
	}

	texts := make(map[string]string, len(claims)+len(actions))
	for _, c := range claims {
		texts[vector.KindClaim+":"+c.ID] = c.Text
	}
	for _, a := range actions {
		texts[vector.KindAction+":"+a.ID] = a.Title
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		text, ok := texts[h.Kind+":"+h.ID]
		if !ok {
			continue
		}
		results = append(results, SearchResult{
			Kind:           h.Kind,
			ID:             h.ID,
			Text:           text,
			ConversationID: h.ConversationID,
			Score:          float64(h.Score),
		})
		if len(results) == k {
			break
		}
	}
	return results, nil
}

func (p *Pipeline) scan(ctx context.Context, emb []float32, k int, claims []memory.Claim, actions []memory.Action) []SearchResult {
	results := make([]SearchResult, 0, len(claims)+len(actions))

	score := func(have []float32, text string) (float64, bool) {
		if len(have) == 0 {
			var err error
			have, err = p.config.Embedder.Embed(ctx, text)
			if err != nil {
				p.logger.Debug("skipping item without embedding", "text", text, "error", err)
				return 0, false
			}
		}
		return vector.CosineSimilarity(emb, have), true
	}

	for _, c := range claims {
		if s, ok := score(c.Embedding, c.Text); ok {
			results = append(results, SearchResult{Kind: vector.KindClaim, ID: c.ID, Text: c.Text, ConversationID: c.ConversationID, Score: s})
		}
	}
	for _, a := range actions {
		if s, ok := score(a.Embedding, a.Title); ok {
			results = append(results, SearchResult{Kind: vector.KindAction, ID: a.ID, Text: a.Title, ConversationID: a.ConversationID, Score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

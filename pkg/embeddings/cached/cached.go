// Package cached memoizes an embeddings.Embedder in memory. Validation
// re-embeds persisted items that lack a stored vector on every comparison,
// so repeated texts are served from the cache.
package cached

import (
	"context"
	"slices"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/papercomputeco/gleaner/pkg/embeddings"
)

const (
	DefaultTTL             = 30 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Embedder caches vectors by exact input text.
type Embedder struct {
	next  embeddings.Embedder
	cache *gocache.Cache
}

// NewEmbedder wraps next. A zero ttl uses DefaultTTL.
func NewEmbedder(next embeddings.Embedder, ttl time.Duration) *Embedder {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Embedder{
		next:  next,
		cache: gocache.New(ttl, DefaultCleanupInterval),
	}
}

// Embed returns a cached vector or computes and stores one. Errors are not
// cached.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return slices.Clone(v.([]float32)), nil
	}

	v, err := e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	e.cache.SetDefault(text, slices.Clone(v))
	return v, nil
}

// Len returns the number of cached vectors.
func (e *Embedder) Len() int {
	return e.cache.ItemCount()
}

// Close flushes the cache and closes the wrapped embedder.
func (e *Embedder) Close() error {
	e.cache.Flush()
	return e.next.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)

// Embedding memoization - avoids re-embedding identical text.
//
// Information Hiding:
// - Cache keying (content hash of the text)
// - Eviction policy (none; entries live for process lifetime)

package llm

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// CachingEmbedder wraps an Embedder with an in-memory memo keyed by a
// content hash of the text. Safe for concurrent use.
type CachingEmbedder struct {
	inner Embedder

	mu      sync.RWMutex
	vectors map[uint64][]float32
}

// NewCachingEmbedder wraps an embedder with memoization.
func NewCachingEmbedder(inner Embedder) *CachingEmbedder {
	return &CachingEmbedder{
		inner:   inner,
		vectors: make(map[uint64][]float32),
	}
}

// Name returns the underlying embedder's name.
func (c *CachingEmbedder) Name() string {
	return c.inner.Name()
}

// Embed returns a cached vector when the exact text was embedded before,
// otherwise delegates to the inner embedder and stores the result.
func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := xxhash.Sum64String(text)

	c.mu.RLock()
	vec, ok := c.vectors[key]
	c.mu.RUnlock()
	if ok {
		out := make([]float32, len(vec))
		copy(out, vec)
		return out, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.mu.Lock()
	c.vectors[key] = stored
	c.mu.Unlock()

	return vec, nil
}

// Len reports the number of memoized vectors.
func (c *CachingEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.vectors)
}

var _ Embedder = (*CachingEmbedder)(nil)

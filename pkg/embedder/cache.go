package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedClient wraps a Client with an LRU cache keyed by text.
type CachedClient struct {
	client Client
	cache  *lru.Cache[string, []float32]
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient caches up to size vectors of client.
func NewCachedClient(client Client, size int) (*CachedClient, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &CachedClient{client: client, cache: cache}, nil
}

// Embed returns cached vectors and embeds the rest in one call.
func (c *CachedClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var slots []int
	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = vec
			continue
		}
		missing = append(missing, text)
		slots = append(slots, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.client.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(missing), len(vecs))
	}
	for j, vec := range vecs {
		c.cache.Add(missing[j], vec)
		out[slots[j]] = vec
	}
	return out, nil
}

// EmbedSingle embeds one text.
func (c *CachedClient) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return single(c.Embed(ctx, []string{text}))
}

// Dimensions returns the wrapped client's dimensions.
func (c *CachedClient) Dimensions() int {
	return c.client.Dimensions()
}

// Len returns the number of cached vectors.
func (c *CachedClient) Len() int {
	return c.cache.Len()
}

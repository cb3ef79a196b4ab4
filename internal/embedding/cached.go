package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/giftlens/giftlens/internal/cache"
)

// CachedEmbedder memoises embeddings in a cache.Client. It is used for
// query-time embeddings, where the same composed query repeats often.
type CachedEmbedder struct {
	inner Embedder
	cache cache.Client
	ttl   time.Duration
}

// NewCachedEmbedder wraps inner. A nil cache disables memoisation.
func NewCachedEmbedder(inner Embedder, c cache.Client, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: c, ttl: ttl}
}

// Embed serves cached vectors and embeds only the misses.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.cache == nil {
		return c.inner.Embed(ctx, texts)
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		raw, err := c.cache.Get(ctx, c.key(text))
		if err == nil {
			if vec, derr := DecodeVector(raw); derr == nil && len(vec) > 0 {
				out[i] = vec
				continue
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			// Cache outages degrade to direct embedding.
			return c.inner.Embed(ctx, texts)
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(missTexts))
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		_ = c.cache.Set(ctx, c.key(texts[i]), EncodeVector(vecs[j]), c.ttl)
	}
	return out, nil
}

func (c *CachedEmbedder) key(text string) string {
	return cache.HashedKey("emb:"+c.inner.Model(), text)
}

// Model returns the wrapped model name.
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// Dimension returns the wrapped dimension.
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

var _ Embedder = (*CachedEmbedder)(nil)

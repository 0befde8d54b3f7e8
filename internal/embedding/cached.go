package embedding

import (
	"context"
	"fmt"
)

// CachedEmbedder wraps an Embedder with an in-memory LRU and an optional on-disk cache.
// Only cache misses reach the inner embedder, in a single batch.
type CachedEmbedder struct {
	inner Embedder
	lru   *EmbeddingCache
	disk  *BoltCache
}

// NewCachedEmbedder wraps inner. disk may be nil.
func NewCachedEmbedder(inner Embedder, size int, disk *BoltCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, lru: NewEmbeddingCache(size), disk: disk}
}

// Embed returns the embedding for text.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch resolves each text from the caches and embeds the rest.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingAt []int
	for i, text := range texts {
		if emb, ok := c.lru.Get(text); ok {
			out[i] = emb
			continue
		}
		if c.disk != nil {
			emb, ok, err := c.disk.Get(text)
			if err != nil {
				return nil, fmt.Errorf("read embedding cache: %w", err)
			}
			if ok && len(emb) == c.inner.Dimensions() {
				c.lru.Set(text, emb)
				out[i] = emb
				continue
			}
		}
		missing = append(missing, text)
		missingAt = append(missingAt, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	embs, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(embs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d texts", len(embs), len(missing))
	}
	for j, emb := range embs {
		out[missingAt[j]] = emb
		c.lru.Set(missing[j], emb)
	}
	if c.disk != nil {
		if err := c.disk.Put(missing, embs); err != nil {
			return nil, fmt.Errorf("write embedding cache: %w", err)
		}
	}
	return out, nil
}

// CacheStats reports the in-memory cache counters.
func (c *CachedEmbedder) CacheStats() CacheStats {
	return c.lru.Stats()
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the inner embedder and the disk cache.
func (c *CachedEmbedder) Close() error {
	err := c.inner.Close()
	if c.disk != nil {
		if derr := c.disk.Close(); err == nil {
			err = derr
		}
	}
	return err
}

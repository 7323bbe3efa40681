package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultEmbeddingDimensions is reported when the provider cannot say.
	DefaultEmbeddingDimensions = 1536

	defaultEmbeddingCacheSize = 5000
	defaultEmbeddingCacheTTL  = 24 * time.Hour

	embeddingCacheName = "embedding"
)

// EmbeddingProvider turns text into a vector.
type EmbeddingProvider interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions(ctx context.Context) (int, error)
}

// CacheRecorder counts cache lookups by cache name.
type CacheRecorder interface {
	CacheHit(cache string)
	CacheMiss(cache string)
}

type EmbeddingCacheConfig struct {
	Size int
	TTL  time.Duration
}

// EmbeddingCache memoizes provider embeddings by the exact input text.
// Concurrent misses for the same text may both reach the provider; the
// last write wins.
type EmbeddingCache struct {
	provider EmbeddingProvider
	entries  *expirable.LRU[string, []float32]
	recorder CacheRecorder
}

func NewEmbeddingCache(provider EmbeddingProvider, cfg EmbeddingCacheConfig, recorder CacheRecorder) *EmbeddingCache {
	if cfg.Size <= 0 {
		cfg.Size = defaultEmbeddingCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultEmbeddingCacheTTL
	}
	return &EmbeddingCache{
		provider: provider,
		entries:  expirable.NewLRU[string, []float32](cfg.Size, nil, cfg.TTL),
		recorder: recorder,
	}
}

// Embed returns the cached vector for text or asks the provider. Provider
// errors are returned as is and nothing is stored.
func (c *EmbeddingCache) Embed(ctx context.Context, text string) ([]float32, error) {
	key := embeddingKey(text)
	if vector, ok := c.entries.Get(key); ok {
		if c.recorder != nil {
			c.recorder.CacheHit(embeddingCacheName)
		}
		return vector, nil
	}
	if c.recorder != nil {
		c.recorder.CacheMiss(embeddingCacheName)
	}

	vector, err := c.provider.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, vector)
	return vector, nil
}

// Dimensions never fails; it falls back to 1536.
func (c *EmbeddingCache) Dimensions(ctx context.Context) int {
	dims, err := c.provider.Dimensions(ctx)
	if err != nil || dims <= 0 {
		return DefaultEmbeddingDimensions
	}
	return dims
}

func (c *EmbeddingCache) Len() int {
	return c.entries.Len()
}

func embeddingKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

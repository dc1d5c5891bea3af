package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// WithEmbeddingCache memoises embeddings in an expirable LRU.
// A non-positive size or ttl returns o unchanged.
func WithEmbeddingCache(o Oracle, size int, ttl time.Duration) Oracle {
	if o == nil || size <= 0 || ttl <= 0 {
		return o
	}
	return &cachedOracle{
		Oracle: o,
		cache:  expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type cachedOracle struct {
	Oracle
	cache *expirable.LRU[string, []float32]
}

func (c *cachedOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(c.Oracle.Name(), text)
	if cached, ok := c.cache.Get(key); ok {
		log.Debug().Msg("embedding cache hit")
		return cloneEmbedding(cached), nil
	}
	res, err := c.Oracle.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneEmbedding(res))
	return res, nil
}

func cacheKey(provider, text string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}

package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/codmer/pulsedoc/internal/domain"
)

const (
	defaultAnswerCacheSize = 1000
	defaultAnswerCacheTTL  = 3 * time.Hour

	answerCacheName = "answer"
)

type AnswerCacheConfig struct {
	Size int
	TTL  time.Duration
}

// AnswerCache keeps general-path answers per scope, top-k and query.
// Any upload or delete purges it because every answer may now be stale.
type AnswerCache struct {
	entries  *expirable.LRU[string, domain.QueryResult]
	recorder CacheRecorder
}

func NewAnswerCache(cfg AnswerCacheConfig, recorder CacheRecorder) *AnswerCache {
	if cfg.Size <= 0 {
		cfg.Size = defaultAnswerCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultAnswerCacheTTL
	}
	return &AnswerCache{
		entries:  expirable.NewLRU[string, domain.QueryResult](cfg.Size, nil, cfg.TTL),
		recorder: recorder,
	}
}

func (c *AnswerCache) Get(scope domain.Scope, topK int, query string) (*domain.QueryResult, bool) {
	result, ok := c.entries.Get(answerKey(scope, topK, query))
	if c.recorder != nil {
		if ok {
			c.recorder.CacheHit(answerCacheName)
		} else {
			c.recorder.CacheMiss(answerCacheName)
		}
	}
	if !ok {
		return nil, false
	}
	return &result, true
}

func (c *AnswerCache) Add(scope domain.Scope, topK int, query string, result *domain.QueryResult) {
	c.entries.Add(answerKey(scope, topK, query), *result)
}

func (c *AnswerCache) Purge() {
	c.entries.Purge()
}

func (c *AnswerCache) Len() int {
	return c.entries.Len()
}

func answerKey(scope domain.Scope, topK int, query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%s|%d|%s", scope.Key(), topK, hex.EncodeToString(sum[:]))
}

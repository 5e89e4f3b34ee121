package search

import (
	"fmt"
	"log"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/chess10kp/liz/internal/shortcut"
)

const defaultCacheSize = 100

// queryCache remembers ranked results per normalised query. It belongs to a
// single Index, so it can never serve results computed from other records.
type queryCache struct {
	cache   *lru.Cache[string, []shortcut.Record]
	maxSize int
	hits    atomic.Int64
	misses  atomic.Int64
}

// CacheStats holds cache statistics
type CacheStats struct {
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

func newQueryCache(maxSize int) (*queryCache, error) {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}

	cache, err := lru.New[string, []shortcut.Record](maxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &queryCache{cache: cache, maxSize: maxSize}, nil
}

func (c *queryCache) get(key string) ([]shortcut.Record, bool) {
	results, found := c.cache.Get(key)
	if !found {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	log.Printf("[SEARCH-CACHE] HIT: key='%s', %d results", key, len(results))
	return results, true
}

func (c *queryCache) put(key string, results []shortcut.Record) {
	c.cache.Add(key, results)
}

func (c *queryCache) stats() CacheStats {
	hits, misses := c.hits.Load(), c.misses.Load()
	hitRate := float64(0)
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Size:    c.cache.Len(),
		MaxSize: c.maxSize,
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

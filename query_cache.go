package strata

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheStats contains latest-at cache statistics.
type CacheStats struct {
	Entries           int
	HitCount          int64
	MissCount         int64
	HitRate           float64
	InvalidationCount int64
}

// LatestAtCache memoizes latest-at results. Entries are keyed by the full
// query and dropped whenever a chunk for the queried entity is added or
// removed — the store's deletion events are exactly the invalidation signal
// downstream caches keyed by ChunkID must honor.
type LatestAtCache struct {
	entries *lru.Cache[string, cacheEntry]

	mu sync.Mutex
	// entity path -> keys cached for it, for event-driven invalidation
	byEntity map[EntityPath]map[string]struct{}

	hitCount     atomic.Int64
	missCount    atomic.Int64
	invalidCount atomic.Int64
}

type cacheEntry struct {
	entity EntityPath
	result LatestAtResult
	// chunks the result was resolved from; retained so that consumers can
	// observe provenance, not needed for invalidation (entity-granular).
	chunks []ChunkID
}

func newLatestAtCache(cfg CacheConfig) *LatestAtCache {
	c := &LatestAtCache{byEntity: make(map[EntityPath]map[string]struct{})}
	cache, err := lru.NewWithEvict(cfg.MaxEntries, func(key string, entry cacheEntry) {
		c.dropKeyIndex(entry.entity, key)
	})
	if err != nil {
		// Only reachable with a non-positive size; defaults prevent it.
		cache, _ = lru.NewWithEvict(defaultCacheEntries, func(key string, entry cacheEntry) {
			c.dropKeyIndex(entry.entity, key)
		})
	}
	c.entries = cache
	return c
}

func (c *LatestAtCache) dropKeyIndex(entity EntityPath, key string) {
	c.mu.Lock()
	if keys, ok := c.byEntity[entity]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.byEntity, entity)
		}
	}
	c.mu.Unlock()
}

func latestAtCacheKey(q LatestAtQuery) string {
	var b strings.Builder
	b.WriteString(q.Entity.String())
	b.WriteByte('|')
	b.WriteString(q.Timeline.Name())
	fmt.Fprintf(&b, "|%d|%d", q.Timeline.Type(), q.At)
	for _, name := range q.Components {
		b.WriteByte('|')
		b.WriteString(string(name))
	}
	return b.String()
}

func (c *LatestAtCache) get(q LatestAtQuery) (LatestAtResult, bool) {
	entry, ok := c.entries.Get(latestAtCacheKey(q))
	if !ok {
		c.missCount.Add(1)
		return LatestAtResult{}, false
	}
	c.hitCount.Add(1)
	return entry.result, true
}

func (c *LatestAtCache) put(q LatestAtQuery, result LatestAtResult, chunks []ChunkID) {
	key := latestAtCacheKey(q)

	c.mu.Lock()
	keys, ok := c.byEntity[q.Entity]
	if !ok {
		keys = make(map[string]struct{})
		c.byEntity[q.Entity] = keys
	}
	keys[key] = struct{}{}
	c.mu.Unlock()

	c.entries.Add(key, cacheEntry{entity: q.Entity, result: result, chunks: chunks})
}

// handleEvents invalidates every cached result for entities touched by the
// events. Additions invalidate too: newer data changes latest-at answers.
func (c *LatestAtCache) handleEvents(events []StoreEvent) {
	seen := make(map[EntityPath]struct{}, len(events))
	for _, ev := range events {
		if _, done := seen[ev.Entity]; done {
			continue
		}
		seen[ev.Entity] = struct{}{}
		c.invalidateEntity(ev.Entity)
	}
}

func (c *LatestAtCache) invalidateEntity(entity EntityPath) {
	c.mu.Lock()
	keys := make([]string, 0, len(c.byEntity[entity]))
	for key := range c.byEntity[entity] {
		keys = append(keys, key)
	}
	delete(c.byEntity, entity)
	c.mu.Unlock()

	for _, key := range keys {
		c.entries.Remove(key)
	}
	c.invalidCount.Add(int64(len(keys)))
}

// stats returns a snapshot of cache counters.
func (c *LatestAtCache) stats() CacheStats {
	hits := c.hitCount.Load()
	misses := c.missCount.Load()
	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return CacheStats{
		Entries:           c.entries.Len(),
		HitCount:          hits,
		MissCount:         misses,
		HitRate:           rate,
		InvalidationCount: c.invalidCount.Load(),
	}
}

// CacheStats returns latest-at cache statistics. ok is false when the cache
// is disabled.
func (s *Store) CacheStats() (CacheStats, bool) {
	if s.cache == nil {
		return CacheStats{}, false
	}
	return s.cache.stats(), true
}

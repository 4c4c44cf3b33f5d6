package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	DefaultMaxEntries = 500
	DefaultTTL        = 30 * time.Minute
)

// MemoryQueryCache is a bounded LRU with lazy TTL expiry.
// Map order is recency order: the oldest pair is the least recently used.
type MemoryQueryCache struct {
	mu         sync.Mutex
	entries    *orderedmap.OrderedMap[string, domain.CachedResult]
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

func NewMemoryQueryCache(maxEntries int, ttl time.Duration) *MemoryQueryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryQueryCache{
		entries:    orderedmap.New[string, domain.CachedResult](),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// WithClock swaps the time source, for tests.
func (c *MemoryQueryCache) WithClock(now func() time.Time) *MemoryQueryCache {
	c.now = now
	return c
}

func (c *MemoryQueryCache) Get(_ context.Context, key string) (*domain.CachedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		c.entries.Delete(key)
		return nil, false
	}
	_ = c.entries.MoveToBack(key)

	entry.Filters = append([]domain.Filter(nil), entry.Filters...)
	return &entry, true
}

func (c *MemoryQueryCache) Set(_ context.Context, key string, result domain.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Delete(key)
	if c.entries.Len() >= c.maxEntries {
		if lru := c.entries.Oldest(); lru != nil {
			c.entries.Delete(lru.Key)
			logrus.Debugf("[CACHE] Evicted %s", lru.Key)
		}
	}
	c.entries.Set(key, domain.CachedResult{
		Filters:     append([]domain.Filter(nil), result.Filters...),
		Explanation: result.Explanation,
		SearchQuery: result.SearchQuery,
		Timestamp:   c.now(),
	})
}

func (c *MemoryQueryCache) FlushShop(_ context.Context, shop string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := domain.ShopKeyPrefix(shop)
	var doomed []string
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		if strings.HasPrefix(pair.Key, prefix) {
			doomed = append(doomed, pair.Key)
		}
	}
	for _, k := range doomed {
		c.entries.Delete(k)
	}
	return len(doomed)
}

func (c *MemoryQueryCache) Stats(_ context.Context) domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Backend:    "memory",
		Entries:    c.entries.Len(),
		MaxEntries: c.maxEntries,
		TTL:        c.ttl.String(),
	}
	var oldest time.Time
	for pair := c.entries.Oldest(); pair != nil; pair = pair.Next() {
		if oldest.IsZero() || pair.Value.Timestamp.Before(oldest) {
			oldest = pair.Value.Timestamp
		}
	}
	if !oldest.IsZero() {
		stats.OldestAge = humanize.RelTime(oldest, c.now(), "ago", "from now")
	}
	return stats
}

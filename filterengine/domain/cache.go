package domain

import (
	"context"
	"strings"
	"time"
)

const (
	CacheKeyDelimiter   = "::"
	AllCollectionsToken = "all"
)

// BuildCacheKey normalizes a query into shop::collection::query.
func BuildCacheKey(shop, collectionHandle, query string) string {
	handle := strings.TrimSpace(collectionHandle)
	if handle == "" {
		handle = AllCollectionsToken
	}
	return shop + CacheKeyDelimiter + handle + CacheKeyDelimiter + strings.ToLower(strings.TrimSpace(query))
}

// ShopKeyPrefix is the prefix shared by every cache key of shop.
func ShopKeyPrefix(shop string) string {
	return shop + CacheKeyDelimiter
}

// CachedResult is a stored resolution. Latency is not cached.
type CachedResult struct {
	Filters     []Filter  `json:"filters"`
	Explanation string    `json:"explanation"`
	SearchQuery string    `json:"searchQuery,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type CacheStats struct {
	Backend    string `json:"backend"`
	Entries    int    `json:"entries"`
	MaxEntries int    `json:"max_entries,omitempty"`
	TTL        string `json:"ttl"`
	OldestAge  string `json:"oldest_age,omitempty"`
}

// IQueryCache is a best-effort store of resolved queries. Failures surface as misses.
type IQueryCache interface {
	Get(ctx context.Context, key string) (*CachedResult, bool)
	Set(ctx context.Context, key string, result Result)
	FlushShop(ctx context.Context, shop string) int
	Stats(ctx context.Context) CacheStats
}

// RateDecision is the admission outcome for one request.
type RateDecision struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

type IRateLimiter interface {
	Check(ctx context.Context, key string, maxRequests int, window time.Duration) RateDecision
}

package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

// ValkeyQueryCache shares resolved queries between instances. Expiry uses
// server-side PX; size bounding is left to the server's maxmemory-policy.
type ValkeyQueryCache struct {
	client *valkey.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewValkeyQueryCache(client *valkey.Client, ttl time.Duration) *ValkeyQueryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ValkeyQueryCache{
		client: client,
		prefix: client.Key("query_cache") + ":",
		ttl:    ttl,
		now:    time.Now,
	}
}

func (c *ValkeyQueryCache) fullKey(key string) string {
	return c.prefix + key
}

func (c *ValkeyQueryCache) Get(ctx context.Context, key string) (*domain.CachedResult, bool) {
	inner := c.client.Inner()
	data, err := inner.Do(ctx, inner.B().Get().Key(c.fullKey(key)).Build()).AsBytes()
	if err != nil {
		if !valkey.IsNil(err) {
			logrus.WithError(err).Warnf("[CACHE] Valkey get failed for %s", key)
		}
		return nil, false
	}

	var entry domain.CachedResult
	if err := json.Unmarshal(data, &entry); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Dropping undecodable entry %s", key)
		return nil, false
	}
	if c.now().Sub(entry.Timestamp) > c.ttl {
		return nil, false
	}
	return &entry, true
}

func (c *ValkeyQueryCache) Set(ctx context.Context, key string, result domain.Result) {
	data, err := json.Marshal(domain.CachedResult{
		Filters:     result.Filters,
		Explanation: result.Explanation,
		SearchQuery: result.SearchQuery,
		Timestamp:   c.now(),
	})
	if err != nil {
		logrus.WithError(err).Warnf("[CACHE] Failed to encode %s", key)
		return
	}

	inner := c.client.Inner()
	cmd := inner.B().Set().Key(c.fullKey(key)).Value(string(data)).Px(c.ttl).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		logrus.WithError(err).Warnf("[CACHE] Valkey set failed for %s", key)
	}
}

func (c *ValkeyQueryCache) FlushShop(ctx context.Context, shop string) int {
	keys, err := c.client.ScanKeys(ctx, c.prefix+valkey.EscapeGlob(domain.ShopKeyPrefix(shop))+"*")
	if err != nil {
		logrus.WithError(err).Warnf("[CACHE] Flush scan failed for %s", shop)
		return 0
	}
	n, err := c.client.DeleteKeys(ctx, keys)
	if err != nil {
		logrus.WithError(err).Warnf("[CACHE] Flush delete failed for %s", shop)
	}
	return int(n)
}

func (c *ValkeyQueryCache) Stats(ctx context.Context) domain.CacheStats {
	stats := domain.CacheStats{Backend: "valkey", TTL: c.ttl.String()}
	keys, err := c.client.ScanKeys(ctx, c.prefix+"*")
	if err != nil {
		logrus.WithError(err).Warn("[CACHE] Stats scan failed")
		return stats
	}
	stats.Entries = len(keys)
	return stats
}

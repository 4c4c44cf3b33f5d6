package domain

import (
	"context"
	"time"
)

// Shop is the per-store record. Taxonomy fields hold JSON and are only
// decoded through the taxonomy service.
type Shop struct {
	Domain         string     `json:"domain"`
	AccessToken    string     `json:"-"`
	Enabled        bool       `json:"enabled"`
	ProductTypes   string     `json:"-"`
	Vendors        string     `json:"-"`
	Tags           string     `json:"-"`
	VariantOptions string     `json:"-"`
	PriceRange     string     `json:"-"`
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
	QueryCount     int64      `json:"query_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TaxonomyRecord is the serialized taxonomy written in one update.
type TaxonomyRecord struct {
	ProductTypes   string
	Vendors        string
	Tags           string
	VariantOptions string
	PriceRange     string
	SyncedAt       time.Time
}

// QueryLog is one analytics row.
type QueryLog struct {
	ID               string    `json:"id"`
	Shop             string    `json:"shop"`
	Query            string    `json:"query"`
	CollectionHandle string    `json:"collection_handle"`
	Filters          string    `json:"filters"`
	SearchQuery      string    `json:"search_query"`
	LatencyMs        int64     `json:"latency_ms"`
	CacheHit         bool      `json:"cache_hit"`
	CreatedAt        time.Time `json:"created_at"`
}

type IShopRepository interface {
	Init(ctx context.Context) error
	FindByDomain(ctx context.Context, domain string) (Shop, error)
	Create(ctx context.Context, shop Shop) error
	Update(ctx context.Context, shop Shop) error
	Upsert(ctx context.Context, shop Shop) error
	List(ctx context.Context) ([]Shop, error)
	SaveTaxonomy(ctx context.Context, domain string, rec TaxonomyRecord) error
	SetSyncedAt(ctx context.Context, domain string, at *time.Time) error
	IncrementQueryCount(ctx context.Context, domain string) error
}

type IQueryLogRepository interface {
	Init(ctx context.Context) error
	LogQuery(ctx context.Context, entry QueryLog) error
	ListRecent(ctx context.Context, shop string, limit int) ([]QueryLog, error)
}

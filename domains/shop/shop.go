package shop

import (
	"context"
	"time"

	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
)

type IShopUsecase interface {
	Upsert(ctx context.Context, request UpsertShopRequest) (taxonomyDomain.Shop, error)
	Status(ctx context.Context, shopDomain string) (ShopStatus, error)
	Sync(ctx context.Context, shopDomain string) (SyncResult, error)
	CatalogChanged(ctx context.Context, shopDomain string) (int, error)
	FlushCache(ctx context.Context, shopDomain string) (int, error)
	CacheStats(ctx context.Context) filterDomain.CacheStats
	RecentQueries(ctx context.Context, shopDomain string, limit int) ([]taxonomyDomain.QueryLog, error)
}

type UpsertShopRequest struct {
	Domain      string `json:"domain"`
	AccessToken string `json:"access_token"`
	Enabled     *bool  `json:"enabled"`
}

type TaxonomySizes struct {
	ProductTypes   int                       `json:"product_types"`
	Vendors        int                       `json:"vendors"`
	Tags           int                       `json:"tags"`
	VariantOptions int                       `json:"variant_options"`
	PriceRange     taxonomyDomain.PriceRange `json:"price_range"`
}

type ShopStatus struct {
	Shop     taxonomyDomain.Shop `json:"shop"`
	Stale    bool                `json:"stale"`
	SyncAge  string              `json:"sync_age,omitempty"`
	Taxonomy TaxonomySizes       `json:"taxonomy"`
}

type SyncResult struct {
	Taxonomy       taxonomyDomain.Context `json:"taxonomy"`
	FlushedEntries int                    `json:"flushed_entries"`
	Duration       time.Duration          `json:"duration_ns"`
}

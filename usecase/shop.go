package usecase

import (
	"context"
	"time"

	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	taxonomyApp "github.com/AzielCF/az-smartfilter/taxonomy/application"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/AzielCF/az-smartfilter/validations"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const DefaultRecentQueries = 50

type serviceShop struct {
	shops     taxonomyDomain.IShopRepository
	queryLogs taxonomyDomain.IQueryLogRepository
	taxonomy  *taxonomyApp.Service
	cache     filterDomain.IQueryCache
}

func NewShopService(shops taxonomyDomain.IShopRepository, queryLogs taxonomyDomain.IQueryLogRepository, taxonomy *taxonomyApp.Service, cache filterDomain.IQueryCache) domainShop.IShopUsecase {
	return &serviceShop{
		shops:     shops,
		queryLogs: queryLogs,
		taxonomy:  taxonomy,
		cache:     cache,
	}
}

func (service *serviceShop) Upsert(ctx context.Context, request domainShop.UpsertShopRequest) (taxonomyDomain.Shop, error) {
	if err := validations.ValidateUpsertShop(ctx, request); err != nil {
		return taxonomyDomain.Shop{}, err
	}

	enabled := true
	if request.Enabled != nil {
		enabled = *request.Enabled
	}

	if err := service.shops.Upsert(ctx, taxonomyDomain.Shop{
		Domain:      request.Domain,
		AccessToken: request.AccessToken,
		Enabled:     enabled,
	}); err != nil {
		return taxonomyDomain.Shop{}, err
	}

	logrus.WithFields(logrus.Fields{"shop": request.Domain, "enabled": enabled}).Info("[SHOP] Shop saved")
	return service.shops.FindByDomain(ctx, request.Domain)
}

func (service *serviceShop) Status(ctx context.Context, shopDomain string) (domainShop.ShopStatus, error) {
	shop, err := service.find(ctx, shopDomain)
	if err != nil {
		return domainShop.ShopStatus{}, err
	}

	tax := taxonomyApp.Parse(shop)
	status := domainShop.ShopStatus{
		Shop:  shop,
		Stale: service.taxonomy.IsStale(shop),
		Taxonomy: domainShop.TaxonomySizes{
			ProductTypes:   len(tax.ProductTypes),
			Vendors:        len(tax.Vendors),
			Tags:           len(tax.Tags),
			VariantOptions: len(tax.VariantOptions),
			PriceRange:     tax.PriceRange,
		},
	}
	if shop.SyncedAt != nil {
		status.SyncAge = humanize.Time(*shop.SyncedAt)
	}
	return status, nil
}

// Sync runs an inline sync and drops the shop's cached answers.
func (service *serviceShop) Sync(ctx context.Context, shopDomain string) (domainShop.SyncResult, error) {
	shop, err := service.find(ctx, shopDomain)
	if err != nil {
		return domainShop.SyncResult{}, err
	}

	start := time.Now()
	tax, err := service.taxonomy.Sync(ctx, shop)
	if err != nil {
		return domainShop.SyncResult{}, err
	}
	flushed := service.cache.FlushShop(ctx, shop.Domain)

	return domainShop.SyncResult{
		Taxonomy:       tax,
		FlushedEntries: flushed,
		Duration:       time.Since(start),
	}, nil
}

// CatalogChanged marks the taxonomy stale so the next query refreshes it in background.
func (service *serviceShop) CatalogChanged(ctx context.Context, shopDomain string) (int, error) {
	if _, err := service.find(ctx, shopDomain); err != nil {
		return 0, err
	}
	if err := service.taxonomy.MarkStale(ctx, shopDomain); err != nil {
		return 0, err
	}
	return service.cache.FlushShop(ctx, shopDomain), nil
}

func (service *serviceShop) FlushCache(ctx context.Context, shopDomain string) (int, error) {
	if err := validations.ValidateShopDomain(ctx, shopDomain); err != nil {
		return 0, err
	}
	flushed := service.cache.FlushShop(ctx, shopDomain)
	logrus.WithFields(logrus.Fields{"shop": shopDomain, "flushed": flushed}).Info("[CACHE] Shop entries flushed")
	return flushed, nil
}

func (service *serviceShop) CacheStats(ctx context.Context) filterDomain.CacheStats {
	return service.cache.Stats(ctx)
}

func (service *serviceShop) RecentQueries(ctx context.Context, shopDomain string, limit int) ([]taxonomyDomain.QueryLog, error) {
	if err := validations.ValidateShopDomain(ctx, shopDomain); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = DefaultRecentQueries
	}
	return service.queryLogs.ListRecent(ctx, shopDomain, limit)
}

func (service *serviceShop) find(ctx context.Context, shopDomain string) (taxonomyDomain.Shop, error) {
	if err := validations.ValidateShopDomain(ctx, shopDomain); err != nil {
		return taxonomyDomain.Shop{}, err
	}
	shop, err := service.shops.FindByDomain(ctx, shopDomain)
	if err != nil {
		if pkgError.IsNotFound(err) {
			return taxonomyDomain.Shop{}, err
		}
		return taxonomyDomain.Shop{}, pkgError.InternalError(err.Error())
	}
	return shop, nil
}

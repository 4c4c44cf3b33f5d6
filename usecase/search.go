package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/pkg/bgworker"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	"github.com/AzielCF/az-smartfilter/pkg/resolvemonitor"
	taxonomyApp "github.com/AzielCF/az-smartfilter/taxonomy/application"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/AzielCF/az-smartfilter/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	MsgUnauthorized = "Unauthorized"
	MsgRateLimited  = "Too many searches. Please wait a moment and try again."
	MsgShopDisabled = "Smart search is not enabled for this store."
	MsgGeneric      = "Something went wrong. Please try again."

	DefaultRateLimitMax    = 30
	DefaultRateLimitWindow = time.Minute

	analyticsTimeout = 5 * time.Second
)

// JobDispatcher is satisfied by *bgworker.Pool.
type JobDispatcher interface {
	TryDispatch(job bgworker.Job) bool
}

type SearchOptions struct {
	RateLimitMax    int
	RateLimitWindow time.Duration
	QueryMaxLength  int
	// Monitor receives one event per resolution; nil uses the process-wide monitor.
	Monitor *resolvemonitor.Monitor
}

type serviceSearch struct {
	shops     taxonomyDomain.IShopRepository
	queryLogs taxonomyDomain.IQueryLogRepository
	taxonomy  *taxonomyApp.Service
	resolver  filterDomain.IResolver
	cache     filterDomain.IQueryCache
	limiter   filterDomain.IRateLimiter
	jobs      JobDispatcher
	opts      SearchOptions
	inflight  singleflight.Group
}

func NewSearchService(
	shops taxonomyDomain.IShopRepository,
	queryLogs taxonomyDomain.IQueryLogRepository,
	taxonomy *taxonomyApp.Service,
	resolver filterDomain.IResolver,
	cache filterDomain.IQueryCache,
	limiter filterDomain.IRateLimiter,
	jobs JobDispatcher,
	opts SearchOptions,
) domainSearch.ISearchUsecase {
	if opts.RateLimitMax <= 0 {
		opts.RateLimitMax = DefaultRateLimitMax
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = DefaultRateLimitWindow
	}
	if opts.QueryMaxLength <= 0 {
		opts.QueryMaxLength = validations.DefaultQueryMaxLength
	}
	return &serviceSearch{
		shops:     shops,
		queryLogs: queryLogs,
		taxonomy:  taxonomy,
		resolver:  resolver,
		cache:     cache,
		limiter:   limiter,
		jobs:      jobs,
		opts:      opts,
	}
}

func (service *serviceSearch) Search(ctx context.Context, request domainSearch.SearchRequest) domainSearch.SearchResponse {
	res, err := service.Resolve(ctx, request)
	if err != nil {
		return domainSearch.ErrorResponse(UserMessage(err))
	}
	return domainSearch.ResultResponse(res)
}

// UserMessage maps typed errors to their own text and hides everything else.
func UserMessage(err error) string {
	var generic pkgError.GenericError
	if errors.As(err, &generic) && generic.ErrCode() != "INTERNAL_SERVER_ERROR" {
		return generic.Error()
	}
	return MsgGeneric
}

func (service *serviceSearch) Resolve(ctx context.Context, request domainSearch.SearchRequest) (filterDomain.Result, error) {
	shop, err := service.authorize(ctx, request.Shop)
	if err != nil {
		return filterDomain.Result{}, err
	}

	decision := service.limiter.Check(ctx, request.Shop+":"+request.ClientIP, service.opts.RateLimitMax, service.opts.RateLimitWindow)
	if !decision.Allowed {
		logrus.WithFields(logrus.Fields{"shop": shop.Domain, "ip": request.ClientIP}).Debug("[SEARCH] Rate limited")
		return filterDomain.Result{}, pkgError.RateLimitError(MsgRateLimited)
	}

	if err := validations.ValidateSearchRequest(ctx, request, service.opts.QueryMaxLength); err != nil {
		return filterDomain.Result{}, err
	}

	if !shop.Enabled {
		return filterDomain.Result{}, pkgError.ForbiddenError(MsgShopDisabled)
	}

	taxonomy := service.loadTaxonomy(ctx, shop)

	key := filterDomain.BuildCacheKey(shop.Domain, request.CollectionHandle, request.Query)
	if cached, ok := service.cache.Get(ctx, key); ok {
		res := filterDomain.Result{
			Filters:     cached.Filters,
			Explanation: cached.Explanation,
			SearchQuery: cached.SearchQuery,
		}
		logrus.WithFields(logrus.Fields{"shop": shop.Domain, "key": key}).Debug("[SEARCH] Cache hit")
		service.track(resolvemonitor.Event{
			Shop:    shop.Domain,
			Query:   request.Query,
			Stage:   resolvemonitor.StageCache,
			Status:  resolvemonitor.StatusOK,
			Filters: len(res.Filters),
		})
		service.recordAnalytics(shop.Domain, request, res, true)
		return res, nil
	}

	// Identical concurrent misses share one model call. It is detached from the
	// first caller's cancellation; the resolver's own timeout bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := service.inflight.Do(key, func() (any, error) {
		res, err := service.resolver.Resolve(shared, filterDomain.ResolveInput{
			Query:            request.Query,
			CollectionHandle: request.CollectionHandle,
			AvailableFilters: request.AvailableFilters,
			Taxonomy:         taxonomy,
		})
		service.trackModelCall(shop.Domain, request.Query, res, err)
		if err != nil {
			return nil, err
		}
		if !res.IsEmpty() {
			service.cache.Set(shared, key, res)
		}
		return res, nil
	})
	if err != nil {
		logrus.WithError(err).WithField("shop", shop.Domain).Error("[SEARCH] Resolution failed")
		return filterDomain.Result{}, pkgError.InternalError(err.Error())
	}

	res := v.(filterDomain.Result)
	logrus.WithFields(logrus.Fields{
		"shop":       shop.Domain,
		"filters":    len(res.Filters),
		"latency_ms": res.LatencyMs,
	}).Info("[SEARCH] Query resolved")

	service.recordAnalytics(shop.Domain, request, res, false)
	return res, nil
}

func (service *serviceSearch) track(e resolvemonitor.Event) {
	if service.opts.Monitor != nil {
		service.opts.Monitor.Record(e)
		return
	}
	resolvemonitor.Record(e)
}

// trackModelCall runs once per actual model call, so shared singleflight waiters are not double counted.
func (service *serviceSearch) trackModelCall(shopDomain, query string, res filterDomain.Result, err error) {
	e := resolvemonitor.Event{
		Shop:       shopDomain,
		Query:      query,
		Stage:      resolvemonitor.StageModel,
		Status:     resolvemonitor.StatusOK,
		Filters:    len(res.Filters),
		DurationMs: res.LatencyMs,
	}
	switch {
	case err != nil:
		e.Status = resolvemonitor.StatusError
		e.Error = err.Error()
	case res.IsEmpty():
		e.Status = resolvemonitor.StatusEmpty
	}
	if res.Usage != nil {
		e.Model = res.Usage.Model
		e.InputTokens = res.Usage.InputTokens
		e.OutputTokens = res.Usage.OutputTokens
		e.CostUSD = res.Usage.CostUSD
	}
	service.track(e)
}

func (service *serviceSearch) authorize(ctx context.Context, shopDomain string) (taxonomyDomain.Shop, error) {
	if shopDomain == "" {
		return taxonomyDomain.Shop{}, pkgError.UnauthorizedError(MsgUnauthorized)
	}
	shop, err := service.shops.FindByDomain(ctx, shopDomain)
	if err != nil {
		if pkgError.IsNotFound(err) {
			return taxonomyDomain.Shop{}, pkgError.UnauthorizedError(MsgUnauthorized)
		}
		return taxonomyDomain.Shop{}, err
	}
	return shop, nil
}

// loadTaxonomy syncs inline the first time and refreshes stale data in background.
// Only one background refresh per shop is pending at a time.
func (service *serviceSearch) loadTaxonomy(ctx context.Context, shop taxonomyDomain.Shop) taxonomyDomain.Context {
	if taxonomyApp.NeverSynced(shop) {
		tax, err := service.taxonomy.Sync(ctx, shop)
		if err != nil {
			logrus.WithError(err).WithField("shop", shop.Domain).Warn("[SEARCH] Inline taxonomy sync failed, continuing without catalog context")
			return taxonomyDomain.Context{}
		}
		service.cache.FlushShop(ctx, shop.Domain)
		return tax
	}

	tax := taxonomyApp.Parse(shop)
	if service.taxonomy.IsStale(shop) && !service.taxonomy.InBackoff(shop.Domain) && service.taxonomy.ClaimRefresh(shop.Domain) {
		service.scheduleSync(shop)
	}
	return tax
}

func (service *serviceSearch) scheduleSync(shop taxonomyDomain.Shop) {
	accepted := service.jobs.TryDispatch(bgworker.Job{
		Kind: "taxonomy_sync",
		Key:  shop.Domain,
		Handler: func(ctx context.Context) error {
			defer service.taxonomy.ReleaseRefresh(shop.Domain)
			if _, err := service.taxonomy.Sync(ctx, shop); err != nil {
				logrus.WithError(err).WithField("shop", shop.Domain).Warn("[SEARCH] Background taxonomy sync failed, keeping stale data")
				return err
			}
			flushed := service.cache.FlushShop(ctx, shop.Domain)
			logrus.WithFields(logrus.Fields{"shop": shop.Domain, "flushed": flushed}).Info("[SEARCH] Background taxonomy sync finished")
			return nil
		},
	})
	if !accepted {
		service.taxonomy.ReleaseRefresh(shop.Domain)
		logrus.WithField("shop", shop.Domain).Warn("[SEARCH] Could not schedule background taxonomy sync")
	}
}

// recordAnalytics never blocks the response; failures are only logged.
func (service *serviceSearch) recordAnalytics(shopDomain string, request domainSearch.SearchRequest, res filterDomain.Result, cacheHit bool) {
	filters, err := json.Marshal(res.Filters)
	if err != nil {
		filters = []byte("[]")
	}
	entry := taxonomyDomain.QueryLog{
		ID:               uuid.NewString(),
		Shop:             shopDomain,
		Query:            request.Query,
		CollectionHandle: request.CollectionHandle,
		Filters:          string(filters),
		SearchQuery:      res.SearchQuery,
		LatencyMs:        res.LatencyMs,
		CacheHit:         cacheHit,
		CreatedAt:        time.Now().UTC(),
	}

	service.jobs.TryDispatch(bgworker.Job{
		Kind: "query_log",
		Key:  shopDomain,
		Handler: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, analyticsTimeout)
			defer cancel()

			var errs []error
			if err := service.queryLogs.LogQuery(ctx, entry); err != nil {
				errs = append(errs, err)
			}
			if err := service.shops.IncrementQueryCount(ctx, shopDomain); err != nil {
				errs = append(errs, err)
			}
			if err := errors.Join(errs...); err != nil {
				logrus.WithError(err).WithField("shop", shopDomain).Warn("[SEARCH] Failed to record analytics")
				return err
			}
			return nil
		},
	})
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	filterRepo "github.com/AzielCF/az-smartfilter/filterengine/repository"
	"github.com/AzielCF/az-smartfilter/pkg/bgworker"
	"github.com/AzielCF/az-smartfilter/pkg/resolvemonitor"
	taxonomyApp "github.com/AzielCF/az-smartfilter/taxonomy/application"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
	taxonomyRepo "github.com/AzielCF/az-smartfilter/taxonomy/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testShop = "acme.myshopify.com"

type fakeCatalog struct {
	calls atomic.Int32
	fail  bool
	types []string
}

func (c *fakeCatalog) ListPage(_ context.Context, _ taxonomyDomain.Shop, kind taxonomyDomain.ListKind, _ string) (taxonomyDomain.Page, error) {
	c.calls.Add(1)
	if c.fail {
		return taxonomyDomain.Page{}, errors.New("shopify unavailable")
	}
	if kind == taxonomyDomain.ListProductTypes {
		return taxonomyDomain.Page{Items: c.types}, nil
	}
	return taxonomyDomain.Page{}, nil
}

func (c *fakeCatalog) PriceExtreme(context.Context, taxonomyDomain.Shop, bool) (taxonomyDomain.PricePoint, error) {
	return taxonomyDomain.PricePoint{Amount: 10, Currency: "USD", Found: true}, nil
}

func (c *fakeCatalog) SampleProducts(context.Context, taxonomyDomain.Shop, int) ([]taxonomyDomain.ProductOptions, error) {
	return nil, nil
}

type fakeResolver struct {
	mu      sync.Mutex
	calls   int
	result  filterDomain.Result
	err     error
	inputs  []filterDomain.ResolveInput
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *fakeResolver) Resolve(ctx context.Context, in filterDomain.ResolveInput) (filterDomain.Result, error) {
	r.mu.Lock()
	r.calls++
	r.inputs = append(r.inputs, in)
	r.mu.Unlock()
	if r.started != nil {
		r.once.Do(func() { close(r.started) })
		<-r.release
	}
	if err := ctx.Err(); err != nil {
		return filterDomain.Result{}, err
	}
	return r.result, r.err
}

func (r *fakeResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// inlineJobs runs background jobs immediately so tests can assert their effects.
type inlineJobs struct {
	mu    sync.Mutex
	kinds []string
}

func (j *inlineJobs) TryDispatch(job bgworker.Job) bool {
	j.mu.Lock()
	j.kinds = append(j.kinds, job.Kind)
	j.mu.Unlock()
	_ = job.Handler(context.Background())
	return true
}

func (j *inlineJobs) dispatched(kind string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, k := range j.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// queuedJobs holds jobs until drain, like a busy worker shard.
type queuedJobs struct {
	mu     sync.Mutex
	queued []bgworker.Job
}

func (j *queuedJobs) TryDispatch(job bgworker.Job) bool {
	j.mu.Lock()
	j.queued = append(j.queued, job)
	j.mu.Unlock()
	return true
}

func (j *queuedJobs) count(kind string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, job := range j.queued {
		if job.Kind == kind {
			n++
		}
	}
	return n
}

func (j *queuedJobs) drain() {
	j.mu.Lock()
	jobs := j.queued
	j.queued = nil
	j.mu.Unlock()
	for _, job := range jobs {
		_ = job.Handler(context.Background())
	}
}

// rejectingJobs models a full queue.
type rejectingJobs struct{}

func (rejectingJobs) TryDispatch(bgworker.Job) bool { return false }

type searchFixture struct {
	shops    *taxonomyRepo.ShopGormRepository
	logs     *taxonomyRepo.QueryLogGormRepository
	catalog  *fakeCatalog
	resolver *fakeResolver
	cache    *filterRepo.MemoryQueryCache
	jobs     *inlineJobs
	monitor  *resolvemonitor.Monitor
	service  domainSearch.ISearchUsecase
}

func newSearchFixture(t *testing.T, opts SearchOptions) *searchFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &searchFixture{
		shops:   taxonomyRepo.NewShopGormRepository(db),
		logs:    taxonomyRepo.NewQueryLogGormRepository(db),
		catalog: &fakeCatalog{types: []string{"Shoes"}},
		resolver: &fakeResolver{result: filterDomain.Result{
			Filters:     []filterDomain.Filter{{ProductType: "Shoes"}},
			Explanation: "Showing shoes.",
			LatencyMs:   12,
		}},
		cache: filterRepo.NewMemoryQueryCache(10, time.Minute),
		jobs:  &inlineJobs{},
	}
	ctx := context.Background()
	require.NoError(t, f.shops.Init(ctx))
	require.NoError(t, f.logs.Init(ctx))

	if opts.Monitor == nil {
		opts.Monitor = resolvemonitor.New(50, 0)
	}
	f.monitor = opts.Monitor

	tax := taxonomyApp.NewService(f.shops, f.catalog)
	f.service = NewSearchService(f.shops, f.logs, tax, f.resolver, f.cache, filterRepo.NewMemoryRateLimiter(), f.jobs, opts)
	return f
}

func (f *searchFixture) addShop(t *testing.T, enabled bool) {
	t.Helper()
	require.NoError(t, f.shops.Upsert(context.Background(), taxonomyDomain.Shop{
		Domain:      testShop,
		AccessToken: "shpat_test",
		Enabled:     enabled,
	}))
}

func request(query string) domainSearch.SearchRequest {
	return domainSearch.SearchRequest{Shop: testShop, ClientIP: "10.0.0.1", Query: query}
}

func errorOf(t *testing.T, resp domainSearch.SearchResponse) string {
	t.Helper()
	require.NotNil(t, resp.Error)
	assert.Nil(t, resp.Filters)
	return *resp.Error
}

func TestSearch_Unauthorized(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})

	assert.Equal(t, MsgUnauthorized, errorOf(t, f.service.Search(context.Background(), domainSearch.SearchRequest{Query: "shoes"})))
	assert.Equal(t, MsgUnauthorized, errorOf(t, f.service.Search(context.Background(), request("shoes"))))
	assert.Zero(t, f.resolver.callCount())
}

func TestSearch_Rejections(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{QueryMaxLength: 10})
	f.addShop(t, true)

	assert.Equal(t, "Please enter a search query.", errorOf(t, f.service.Search(context.Background(), request("  "))))
	assert.Contains(t, errorOf(t, f.service.Search(context.Background(), request("way too long query"))), "too long")
	assert.Zero(t, f.resolver.callCount())
}

func TestSearch_DisabledShop(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.addShop(t, false)

	assert.Equal(t, MsgShopDisabled, errorOf(t, f.service.Search(context.Background(), request("shoes"))))
}

func TestSearch_RateLimited(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{RateLimitMax: 2, RateLimitWindow: time.Minute})
	f.addShop(t, true)
	ctx := context.Background()

	assert.Nil(t, f.service.Search(ctx, request("shoes")).Error)
	assert.Nil(t, f.service.Search(ctx, request("boots")).Error)
	assert.Equal(t, MsgRateLimited, errorOf(t, f.service.Search(ctx, request("sandals"))))

	other := request("sandals")
	other.ClientIP = "10.0.0.2"
	assert.Nil(t, f.service.Search(ctx, other).Error)
}

func TestSearch_FirstQuerySyncsInlineAndRecordsAnalytics(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.addShop(t, true)
	ctx := context.Background()

	resp := f.service.Search(ctx, request("Red Shoes"))
	require.Nil(t, resp.Error)
	assert.Equal(t, []filterDomain.Filter{{ProductType: "Shoes"}}, resp.Filters)
	require.NotNil(t, resp.Explanation)
	assert.Equal(t, "Showing shoes.", *resp.Explanation)
	assert.Nil(t, resp.SearchQuery)

	assert.Equal(t, int32(3), f.catalog.calls.Load())
	require.Len(t, f.resolver.inputs, 1)
	assert.Equal(t, []string{"Shoes"}, f.resolver.inputs[0].Taxonomy.ProductTypes)
	assert.Zero(t, f.jobs.dispatched("taxonomy_sync"))

	shop, err := f.shops.FindByDomain(ctx, testShop)
	require.NoError(t, err)
	assert.NotNil(t, shop.SyncedAt)
	assert.Equal(t, int64(1), shop.QueryCount)

	logs, err := f.logs.ListRecent(ctx, testShop, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Red Shoes", logs[0].Query)
	assert.False(t, logs[0].CacheHit)
	assert.JSONEq(t, `[{"productType":"Shoes"}]`, logs[0].Filters)
}

func TestSearch_InlineSyncFailureDegrades(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.catalog.fail = true
	f.addShop(t, true)

	resp := f.service.Search(context.Background(), request("shoes"))
	require.Nil(t, resp.Error)
	require.Len(t, f.resolver.inputs, 1)
	assert.True(t, f.resolver.inputs[0].Taxonomy.IsEmpty())
}

func TestSearch_CacheHitOnNormalizedQuery(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.addShop(t, true)
	ctx := context.Background()

	first := f.service.Search(ctx, request("red shoes"))
	second := f.service.Search(ctx, request("  RED Shoes "))
	require.Nil(t, second.Error)
	assert.Equal(t, first.Filters, second.Filters)
	assert.Equal(t, 1, f.resolver.callCount())

	logs, err := f.logs.ListRecent(ctx, testShop, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	hits := 0
	for _, l := range logs {
		if l.CacheHit {
			hits++
		}
	}
	assert.Equal(t, 1, hits)
}

func TestSearch_MonitorTracksCacheAndModelUsage(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.addShop(t, true)
	f.resolver.result.Usage = &filterDomain.UsageStats{Model: "gpt-test", InputTokens: 200, OutputTokens: 40, CostUSD: 0.002}
	ctx := context.Background()

	require.Nil(t, f.service.Search(ctx, request("red shoes")).Error)
	require.Nil(t, f.service.Search(ctx, request("red shoes")).Error)

	stats := f.monitor.GetStats()
	assert.EqualValues(t, 2, stats.TotalQueries)
	assert.EqualValues(t, 1, stats.TotalModelCalls)
	assert.EqualValues(t, 1, stats.TotalCacheHits)
	assert.EqualValues(t, 200, stats.TotalInputTokens)
	assert.InDelta(t, 0.002, stats.TotalCostUSD, 1e-9)
	require.Len(t, stats.RecentEvents, 2)
	assert.Equal(t, "gpt-test", stats.RecentEvents[0].Model)
	assert.Equal(t, resolvemonitor.StageCache, stats.RecentEvents[1].Stage)
}

func TestSearch_EmptyResultIsNotCached(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.resolver.result = filterDomain.Result{Filters: []filterDomain.Filter{}, Explanation: "Nothing matched."}
	f.addShop(t, true)
	ctx := context.Background()

	resp := f.service.Search(ctx, request("xyzzy"))
	require.Nil(t, resp.Error)
	assert.NotNil(t, resp.Filters)
	assert.Empty(t, resp.Filters)

	f.service.Search(ctx, request("xyzzy"))
	assert.Equal(t, 2, f.resolver.callCount())
}

func TestSearch_SearchQueryOnlyResultIsCached(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.resolver.result = filterDomain.Result{Explanation: "Searching.", SearchQuery: "cozy"}
	f.addShop(t, true)
	ctx := context.Background()

	resp := f.service.Search(ctx, request("cozy"))
	require.NotNil(t, resp.SearchQuery)
	assert.Equal(t, "cozy", *resp.SearchQuery)

	f.service.Search(ctx, request("cozy"))
	assert.Equal(t, 1, f.resolver.callCount())
}

func TestSearch_StaleTaxonomyRefreshesInBackground(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.addShop(t, true)
	ctx := context.Background()

	rec, err := taxonomyApp.Serialize(taxonomyDomain.Context{ProductTypes: []string{"Boots"}}, time.Now().Add(-7*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.shops.SaveTaxonomy(ctx, testShop, rec))

	f.cache.Set(ctx, filterDomain.BuildCacheKey(testShop, "", "old query"), filterDomain.Result{Filters: []filterDomain.Filter{{Tag: "old"}}})

	resp := f.service.Search(ctx, request("shoes"))
	require.Nil(t, resp.Error)

	require.Len(t, f.resolver.inputs, 1)
	assert.Equal(t, []string{"Boots"}, f.resolver.inputs[0].Taxonomy.ProductTypes)
	assert.Equal(t, 1, f.jobs.dispatched("taxonomy_sync"))

	_, ok := f.cache.Get(ctx, filterDomain.BuildCacheKey(testShop, "", "old query"))
	assert.False(t, ok)

	shop, err := f.shops.FindByDomain(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shoes"}, taxonomyApp.Parse(shop).ProductTypes)
}

func saveStaleTaxonomy(t *testing.T, f *searchFixture) {
	t.Helper()
	rec, err := taxonomyApp.Serialize(taxonomyDomain.Context{ProductTypes: []string{"Boots"}}, time.Now().Add(-7*time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.shops.SaveTaxonomy(context.Background(), testShop, rec))
}

func TestSearch_StaleTaxonomyQueuesOneRefreshPerShop(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{RateLimitMax: 100})
	f.addShop(t, true)
	saveStaleTaxonomy(t, f)
	ctx := context.Background()

	jobs := &queuedJobs{}
	tax := taxonomyApp.NewService(f.shops, f.catalog)
	service := NewSearchService(f.shops, f.logs, tax, f.resolver, f.cache, filterRepo.NewMemoryRateLimiter(), jobs, SearchOptions{
		RateLimitMax: 100,
		Monitor:      f.monitor,
	})

	for _, q := range []string{"shoes", "boots", "red", "blue", "sale"} {
		resp := service.Search(ctx, request(q))
		require.Nil(t, resp.Error)
	}
	assert.Equal(t, 1, jobs.count("taxonomy_sync"))
	assert.Equal(t, 5, jobs.count("query_log"))

	jobs.drain()
	// one sync lists product types, vendors and tags once each
	assert.Equal(t, int32(3), f.catalog.calls.Load())

	// the mark is released once the refresh ran, so a later stale shop is picked up again
	saveStaleTaxonomy(t, f)
	service.Search(ctx, request("hats"))
	assert.Equal(t, 1, jobs.count("taxonomy_sync"))
}

func TestSearch_RejectedRefreshIsRetriedOnNextQuery(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{RateLimitMax: 100})
	f.addShop(t, true)
	saveStaleTaxonomy(t, f)
	ctx := context.Background()

	tax := taxonomyApp.NewService(f.shops, f.catalog)
	rejecting := NewSearchService(f.shops, f.logs, tax, f.resolver, f.cache, filterRepo.NewMemoryRateLimiter(), rejectingJobs{}, SearchOptions{
		RateLimitMax: 100,
		Monitor:      f.monitor,
	})
	require.Nil(t, rejecting.Search(ctx, request("shoes")).Error)

	jobs := &queuedJobs{}
	accepting := NewSearchService(f.shops, f.logs, tax, f.resolver, f.cache, filterRepo.NewMemoryRateLimiter(), jobs, SearchOptions{
		RateLimitMax: 100,
		Monitor:      f.monitor,
	})
	require.Nil(t, accepting.Search(ctx, request("boots")).Error)
	assert.Equal(t, 1, jobs.count("taxonomy_sync"))
}

func TestSearch_ResolverErrorIsGeneric(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{})
	f.resolver.err = errors.New("openai tool call: 500 internal")
	f.addShop(t, true)

	assert.Equal(t, MsgGeneric, errorOf(t, f.service.Search(context.Background(), request("shoes"))))
}

func TestSearch_ConcurrentMissesShareOneResolution(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{RateLimitMax: 100})
	f.addShop(t, true)
	ctx := context.Background()

	// first call syncs the taxonomy so later calls skip straight to the cache check
	f.resolver.result = filterDomain.Result{Filters: []filterDomain.Filter{{Tag: "warmup"}}}
	f.service.Search(ctx, request("warmup"))

	f.resolver.result = filterDomain.Result{Filters: []filterDomain.Filter{{ProductType: "Shoes"}}}
	f.resolver.started = make(chan struct{})
	f.resolver.release = make(chan struct{})

	var wg sync.WaitGroup
	responses := make([]domainSearch.SearchResponse, 5)
	for i := range responses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			responses[i] = f.service.Search(ctx, request("shoes"))
		}(i)
	}

	<-f.resolver.started
	time.Sleep(50 * time.Millisecond)
	close(f.resolver.release)
	wg.Wait()

	assert.Equal(t, 2, f.resolver.callCount())
	for _, r := range responses {
		assert.Nil(t, r.Error)
		assert.Equal(t, []filterDomain.Filter{{ProductType: "Shoes"}}, r.Filters)
	}
}

func TestSearch_CanceledLeaderDoesNotFailSharedResolution(t *testing.T) {
	f := newSearchFixture(t, SearchOptions{RateLimitMax: 100})
	f.addShop(t, true)
	ctx := context.Background()

	f.resolver.result = filterDomain.Result{Filters: []filterDomain.Filter{{Tag: "warmup"}}}
	f.service.Search(ctx, request("warmup"))

	f.resolver.result = filterDomain.Result{Filters: []filterDomain.Filter{{ProductType: "Shoes"}}}
	f.resolver.started = make(chan struct{})
	f.resolver.release = make(chan struct{})

	leaderCtx, cancel := context.WithCancel(ctx)
	leader := make(chan domainSearch.SearchResponse, 1)
	go func() { leader <- f.service.Search(leaderCtx, request("shoes")) }()
	<-f.resolver.started

	follower := make(chan domainSearch.SearchResponse, 1)
	go func() { follower <- f.service.Search(ctx, request("shoes")) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	close(f.resolver.release)

	for _, resp := range []domainSearch.SearchResponse{<-leader, <-follower} {
		assert.Nil(t, resp.Error)
		assert.Equal(t, []filterDomain.Filter{{ProductType: "Shoes"}}, resp.Filters)
	}
	assert.Equal(t, 2, f.resolver.callCount())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, MsgGeneric, UserMessage(errors.New("db down")))
}

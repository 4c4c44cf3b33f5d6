package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMaxAge       = 6 * time.Hour
	DefaultRetryBackoff = 5 * time.Minute

	// ListCap bounds each vocabulary listing.
	ListCap = 1000
	// SampleSize is how many products are inspected for variant options.
	SampleSize = 100
	// MaxOptionValues bounds the values kept per variant option.
	MaxOptionValues = 1000

	// SingleVariantPlaceholder is the value the platform gives products without real variants.
	SingleVariantPlaceholder = "Default Title"
)

// Service owns taxonomy staleness, decoding and synchronization.
type Service struct {
	repo         domain.IShopRepository
	source       domain.CatalogSource
	maxAge       time.Duration
	retryBackoff time.Duration
	now          func() time.Time

	group singleflight.Group

	mu       sync.Mutex
	failures map[string]time.Time
	pending  map[string]struct{}
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

func WithRetryBackoff(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.retryBackoff = d
		}
	}
}

func NewService(repo domain.IShopRepository, source domain.CatalogSource, opts ...Option) *Service {
	s := &Service{
		repo:         repo,
		source:       source,
		maxAge:       DefaultMaxAge,
		retryBackoff: DefaultRetryBackoff,
		now:          time.Now,
		failures:     make(map[string]time.Time),
		pending:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NeverSynced reports whether the shop has no taxonomy at all.
func NeverSynced(shop domain.Shop) bool {
	return shop.SyncedAt == nil
}

// IsStale reports whether shop needs a resync at instant now.
func IsStale(shop domain.Shop, maxAge time.Duration, now time.Time) bool {
	if shop.SyncedAt == nil {
		return true
	}
	return now.Sub(*shop.SyncedAt) > maxAge
}

func (s *Service) IsStale(shop domain.Shop) bool {
	return IsStale(shop, s.maxAge, s.now())
}

// Parse decodes the persisted taxonomy. Any malformed field yields an empty context.
func Parse(shop domain.Shop) domain.Context {
	var ctx domain.Context

	fields := []struct {
		name string
		raw  string
		dst  any
	}{
		{"productTypes", shop.ProductTypes, &ctx.ProductTypes},
		{"vendors", shop.Vendors, &ctx.Vendors},
		{"tags", shop.Tags, &ctx.Tags},
		{"variantOptions", shop.VariantOptions, &ctx.VariantOptions},
		{"priceRange", shop.PriceRange, &ctx.PriceRange},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			logrus.WithFields(logrus.Fields{
				"shop":  shop.Domain,
				"field": f.name,
			}).WithError(err).Warn("[TAXONOMY] Malformed taxonomy, using empty context")
			return domain.Context{}
		}
	}
	return ctx
}

// Serialize encodes a context for persistence.
func Serialize(c domain.Context, syncedAt time.Time) (domain.TaxonomyRecord, error) {
	enc := func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	}

	rec := domain.TaxonomyRecord{SyncedAt: syncedAt}
	var err error
	if rec.ProductTypes, err = enc(nonNil(c.ProductTypes)); err != nil {
		return rec, err
	}
	if rec.Vendors, err = enc(nonNil(c.Vendors)); err != nil {
		return rec, err
	}
	if rec.Tags, err = enc(nonNil(c.Tags)); err != nil {
		return rec, err
	}
	options := c.VariantOptions
	if options == nil {
		options = []domain.VariantOption{}
	}
	if rec.VariantOptions, err = enc(options); err != nil {
		return rec, err
	}
	if rec.PriceRange, err = enc(c.PriceRange); err != nil {
		return rec, err
	}
	return rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Sync rebuilds the shop's taxonomy from the catalog and persists it in one update.
// Concurrent calls for the same shop share a single fetch. On failure the stored
// taxonomy is left untouched.
func (s *Service) Sync(ctx context.Context, shop domain.Shop) (domain.Context, error) {
	v, err, shared := s.group.Do(shop.Domain, func() (any, error) {
		return s.sync(ctx, shop)
	})
	if shared {
		logrus.Debugf("[TAXONOMY] Joined in-flight sync for %s", shop.Domain)
	}
	if err != nil {
		s.recordFailure(shop.Domain)
		return domain.Context{}, err
	}
	s.clearFailure(shop.Domain)
	return v.(domain.Context), nil
}

func (s *Service) sync(ctx context.Context, shop domain.Shop) (domain.Context, error) {
	start := s.now()
	var out domain.Context
	var err error

	if out.ProductTypes, err = s.collect(ctx, shop, domain.ListProductTypes); err != nil {
		return out, err
	}
	if out.Vendors, err = s.collect(ctx, shop, domain.ListVendors); err != nil {
		return out, err
	}
	if out.Tags, err = s.collect(ctx, shop, domain.ListTags); err != nil {
		return out, err
	}

	lowest, err := s.source.PriceExtreme(ctx, shop, false)
	if err != nil {
		return out, fmt.Errorf("fetch lowest price: %w", err)
	}
	highest, err := s.source.PriceExtreme(ctx, shop, true)
	if err != nil {
		return out, fmt.Errorf("fetch highest price: %w", err)
	}
	out.PriceRange = domain.PriceRange{Min: lowest.Amount, Max: highest.Amount, Currency: lowest.Currency}
	if out.PriceRange.Currency == "" {
		out.PriceRange.Currency = highest.Currency
	}

	products, err := s.source.SampleProducts(ctx, shop, SampleSize)
	if err != nil {
		return out, fmt.Errorf("sample product options: %w", err)
	}
	out.VariantOptions = BuildVariantOptions(products)

	rec, err := Serialize(out, s.now().UTC())
	if err != nil {
		return out, fmt.Errorf("serialize taxonomy: %w", err)
	}
	if err := s.repo.SaveTaxonomy(ctx, shop.Domain, rec); err != nil {
		return out, fmt.Errorf("persist taxonomy: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"shop":            shop.Domain,
		"product_types":   len(out.ProductTypes),
		"vendors":         len(out.Vendors),
		"tags":            len(out.Tags),
		"variant_options": len(out.VariantOptions),
		"duration":        s.now().Sub(start).String(),
	}).Info("[TAXONOMY] Sync completed")

	return out, nil
}

// collect pages through one listing until exhausted or ListCap is reached.
func (s *Service) collect(ctx context.Context, shop domain.Shop, kind domain.ListKind) ([]string, error) {
	items := []string{}
	cursor := ""
	for {
		page, err := s.source.ListPage(ctx, shop, kind, cursor)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		items = append(items, page.Items...)
		if !page.HasNextPage || len(items) >= ListCap {
			break
		}
		cursor = page.EndCursor
	}
	if len(items) > ListCap {
		items = items[:ListCap]
	}
	return items, nil
}

// MarkStale forces a background resync on the next query without discarding the current taxonomy.
func (s *Service) MarkStale(ctx context.Context, shopDomain string) error {
	epoch := time.Unix(0, 0).UTC()
	if err := s.repo.SetSyncedAt(ctx, shopDomain, &epoch); err != nil {
		return fmt.Errorf("mark taxonomy stale: %w", err)
	}
	logrus.Infof("[TAXONOMY] Marked %s stale", shopDomain)
	return nil
}

// InBackoff reports whether a recent failed sync should suppress another background attempt.
func (s *Service) InBackoff(shopDomain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	failedAt, ok := s.failures[shopDomain]
	if !ok {
		return false
	}
	if s.now().Sub(failedAt) >= s.retryBackoff {
		delete(s.failures, shopDomain)
		return false
	}
	return true
}

func (s *Service) recordFailure(shopDomain string) {
	s.mu.Lock()
	s.failures[shopDomain] = s.now()
	s.mu.Unlock()
}

func (s *Service) clearFailure(shopDomain string) {
	s.mu.Lock()
	delete(s.failures, shopDomain)
	s.mu.Unlock()
}

// ClaimRefresh marks a background refresh as pending for the shop. It returns
// false while an earlier claim has not been released, so at most one refresh
// per shop is queued at a time.
func (s *Service) ClaimRefresh(shopDomain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[shopDomain]; ok {
		return false
	}
	s.pending[shopDomain] = struct{}{}
	return true
}

// ReleaseRefresh clears the pending mark set by ClaimRefresh.
func (s *Service) ReleaseRefresh(shopDomain string) {
	s.mu.Lock()
	delete(s.pending, shopDomain)
	s.mu.Unlock()
}

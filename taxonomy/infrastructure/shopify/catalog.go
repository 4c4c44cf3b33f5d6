// Package shopify reads catalog vocabulary through the Shopify Admin GraphQL API.
package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	DefaultAPIVersion = "2024-10"
	pageSize          = 250
	defaultTimeout    = 30 * time.Second
)

type Config struct {
	APIVersion        string
	RequestsPerSecond float64
	// BaseURL replaces https://<shop> when set.
	BaseURL string
	Timeout time.Duration
}

// CatalogSource implements domain.CatalogSource.
type CatalogSource struct {
	cfg     Config
	client  *fasthttp.Client
	limiter *rate.Limiter
}

func NewCatalogSource(cfg Config) *CatalogSource {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &CatalogSource{
		cfg: cfg,
		client: &fasthttp.Client{
			Name:                "az-smartfilter",
			MaxIdleConnDuration: time.Minute,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

const listQuery = `query($first: Int!, $after: String) {
  %s(first: $first, after: $after) {
    edges { node }
    pageInfo { hasNextPage endCursor }
  }
}`

func (c *CatalogSource) ListPage(ctx context.Context, shop domain.Shop, kind domain.ListKind, after string) (domain.Page, error) {
	vars := map[string]any{"first": pageSize}
	if after != "" {
		vars["after"] = after
	}

	data, err := c.do(ctx, shop, fmt.Sprintf(listQuery, kind), vars)
	if err != nil {
		return domain.Page{}, err
	}

	conn := data.Get(string(kind))
	page := domain.Page{
		HasNextPage: conn.Get("pageInfo.hasNextPage").Bool(),
		EndCursor:   conn.Get("pageInfo.endCursor").String(),
	}
	for _, node := range conn.Get("edges.#.node").Array() {
		if v := strings.TrimSpace(node.String()); v != "" {
			page.Items = append(page.Items, v)
		}
	}
	return page, nil
}

const priceQuery = `query($reverse: Boolean!) {
  products(first: 1, sortKey: PRICE, reverse: $reverse) {
    edges { node { priceRangeV2 {
      minVariantPrice { amount currencyCode }
      maxVariantPrice { amount currencyCode }
    } } }
  }
}`

func (c *CatalogSource) PriceExtreme(ctx context.Context, shop domain.Shop, highest bool) (domain.PricePoint, error) {
	data, err := c.do(ctx, shop, priceQuery, map[string]any{"reverse": highest})
	if err != nil {
		return domain.PricePoint{}, err
	}

	path := "products.edges.0.node.priceRangeV2.minVariantPrice"
	if highest {
		path = "products.edges.0.node.priceRangeV2.maxVariantPrice"
	}
	price := data.Get(path)
	if !price.Exists() {
		return domain.PricePoint{}, nil
	}
	// amount is a Decimal scalar serialized as a string
	return domain.PricePoint{
		Amount:   price.Get("amount").Float(),
		Currency: price.Get("currencyCode").String(),
		Found:    true,
	}, nil
}

const optionsQuery = `query($first: Int!) {
  products(first: $first) {
    edges { node { options { name values } } }
  }
}`

func (c *CatalogSource) SampleProducts(ctx context.Context, shop domain.Shop, limit int) ([]domain.ProductOptions, error) {
	data, err := c.do(ctx, shop, optionsQuery, map[string]any{"first": limit})
	if err != nil {
		return nil, err
	}

	var out []domain.ProductOptions
	for _, node := range data.Get("products.edges.#.node").Array() {
		var p domain.ProductOptions
		for _, opt := range node.Get("options").Array() {
			vo := domain.VariantOption{Name: opt.Get("name").String()}
			for _, v := range opt.Get("values").Array() {
				vo.Values = append(vo.Values, v.String())
			}
			p.Options = append(p.Options, vo)
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *CatalogSource) endpoint(shop domain.Shop) string {
	base := c.cfg.BaseURL
	if base == "" {
		base = "https://" + shop.Domain
	}
	return strings.TrimSuffix(base, "/") + "/admin/api/" + c.cfg.APIVersion + "/graphql.json"
}

// do runs one GraphQL request and returns its data object.
func (c *CatalogSource) do(ctx context.Context, shop domain.Shop, query string, vars map[string]any) (gjson.Result, error) {
	if shop.AccessToken == "" {
		return gjson.Result{}, fmt.Errorf("shop %s has no access token", shop.Domain)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return gjson.Result{}, err
	}

	body, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	if err != nil {
		return gjson.Result{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.endpoint(shop))
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("X-Shopify-Access-Token", shop.AccessToken)
	req.SetBody(body)

	timeout := c.cfg.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		return gjson.Result{}, fmt.Errorf("shopify request failed: %w", err)
	}

	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return gjson.Result{}, fmt.Errorf("shopify returned status %d", status)
	}

	payload := resp.Body()
	if !gjson.ValidBytes(payload) {
		return gjson.Result{}, fmt.Errorf("shopify returned invalid json")
	}
	parsed := gjson.ParseBytes(payload)
	if errs := parsed.Get("errors"); errs.Exists() {
		msg := errs.Get("0.message").String()
		if msg == "" {
			msg = errs.String()
		}
		return gjson.Result{}, fmt.Errorf("shopify graphql error: %s", msg)
	}

	if cost := parsed.Get("extensions.cost.throttleStatus.currentlyAvailable"); cost.Exists() {
		logrus.Debugf("[TAXONOMY] Shopify cost budget for %s: %d", shop.Domain, cost.Int())
	}
	return parsed.Get("data"), nil
}

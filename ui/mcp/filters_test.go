package mcp

import (
	"context"
	"testing"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearch struct {
	last domainSearch.SearchRequest
	res  filterDomain.Result
	err  error
}

func (f *fakeSearch) Search(context.Context, domainSearch.SearchRequest) domainSearch.SearchResponse {
	return domainSearch.SearchResponse{}
}

func (f *fakeSearch) Resolve(_ context.Context, r domainSearch.SearchRequest) (filterDomain.Result, error) {
	f.last = r
	return f.res, f.err
}

type fakeShop struct {
	domainShop.IShopUsecase
}

func (fakeShop) Status(_ context.Context, shop string) (domainShop.ShopStatus, error) {
	return domainShop.ShopStatus{
		Shop:     taxonomyDomain.Shop{Domain: shop},
		Taxonomy: domainShop.TaxonomySizes{ProductTypes: 4},
	}, nil
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestResolveFilters_ReturnsURLParams(t *testing.T) {
	maxPrice := 50.0
	search := &fakeSearch{res: filterDomain.Result{
		Filters: []filterDomain.Filter{
			{ProductType: "Shoes"},
			{Price: &filterDomain.PriceRange{Max: &maxPrice}},
		},
		Explanation: "Shoes under 50.",
	}}
	h := InitMcpFilters(search, fakeShop{})

	result, err := h.handleResolveFilters(context.Background(), callRequest(ToolResolveFilters, map[string]any{
		"shop":              "acme.myshopify.com",
		"query":             "shoes under 50",
		"collection_handle": "sale",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	assert.Equal(t, "sale", search.last.CollectionHandle)
	assert.Equal(t, mcpClientIdentity, search.last.ClientIP)

	out, ok := result.StructuredContent.(ResolvedFilters)
	require.True(t, ok)
	assert.Equal(t, []filterDomain.StorefrontParam{
		{Name: "filter.p.product_type", Value: "Shoes"},
		{Name: "filter.v.price.lte", Value: "50"},
	}, out.URLParams)
}

func TestResolveFilters_TypedErrorBecomesToolError(t *testing.T) {
	h := InitMcpFilters(&fakeSearch{err: pkgError.UnauthorizedError("Unauthorized")}, fakeShop{})

	result, err := h.handleResolveFilters(context.Background(), callRequest(ToolResolveFilters, map[string]any{
		"shop":  "ghost.myshopify.com",
		"query": "boots",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestResolveFilters_MissingArgument(t *testing.T) {
	h := InitMcpFilters(&fakeSearch{}, fakeShop{})

	_, err := h.handleResolveFilters(context.Background(), callRequest(ToolResolveFilters, map[string]any{"shop": "acme.myshopify.com"}))
	assert.Error(t, err)
}

func TestShopStatus(t *testing.T) {
	h := InitMcpFilters(&fakeSearch{}, fakeShop{})

	result, err := h.handleShopStatus(context.Background(), callRequest(ToolShopStatus, map[string]any{"shop": "acme.myshopify.com"}))
	require.NoError(t, err)
	status, ok := result.StructuredContent.(domainShop.ShopStatus)
	require.True(t, ok)
	assert.Equal(t, 4, status.Taxonomy.ProductTypes)
}

package mcp

import (
	"context"
	"fmt"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/usecase"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ToolResolveFilters = "resolve_storefront_filters"
	ToolShopStatus     = "shop_taxonomy_status"

	// agents share one rate-limit bucket per shop
	mcpClientIdentity = "mcp"
)

type FiltersHandler struct {
	searchService domainSearch.ISearchUsecase
	shopService   domainShop.IShopUsecase
}

// ResolvedFilters is the structured tool output.
type ResolvedFilters struct {
	Filters     []filterDomain.Filter          `json:"filters"`
	Explanation string                         `json:"explanation"`
	SearchQuery string                         `json:"searchQuery,omitempty"`
	LatencyMs   int64                          `json:"latencyMs"`
	URLParams   []filterDomain.StorefrontParam `json:"urlParams"`
}

func InitMcpFilters(searchService domainSearch.ISearchUsecase, shopService domainShop.IShopUsecase) *FiltersHandler {
	return &FiltersHandler{
		searchService: searchService,
		shopService:   shopService,
	}
}

func (h *FiltersHandler) AddFilterTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(h.toolResolveFilters(), h.handleResolveFilters)
	mcpServer.AddTool(h.toolShopStatus(), h.handleShopStatus)
}

func (h *FiltersHandler) toolResolveFilters() mcp.Tool {
	return mcp.NewTool(
		ToolResolveFilters,
		mcp.WithDescription("Translate a shopper's free-text query into storefront filters and collection URL parameters, aligned with the store's catalog."),
		mcp.WithTitleAnnotation("Resolve Storefront Filters"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("shop",
			mcp.Description("The shop's myshopify.com domain."),
			mcp.Required(),
		),
		mcp.WithString("query",
			mcp.Description("The shopper's search text."),
			mcp.Required(),
		),
		mcp.WithString("collection_handle",
			mcp.Description("Collection the shopper is browsing. Omit for all products."),
		),
	)
}

func (h *FiltersHandler) handleResolveFilters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shop, err := request.RequireString("shop")
	if err != nil {
		return nil, err
	}
	query, err := request.RequireString("query")
	if err != nil {
		return nil, err
	}

	res, err := h.searchService.Resolve(ctx, domainSearch.SearchRequest{
		Shop:             shop,
		ClientIP:         mcpClientIdentity,
		Query:            query,
		CollectionHandle: request.GetString("collection_handle", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(usecase.UserMessage(err)), nil
	}

	out := ResolvedFilters{
		Filters:     res.Filters,
		Explanation: res.Explanation,
		SearchQuery: res.SearchQuery,
		LatencyMs:   res.LatencyMs,
		URLParams:   filterDomain.StorefrontParams(res.Filters),
	}
	if out.Filters == nil {
		out.Filters = []filterDomain.Filter{}
	}

	fallback := fmt.Sprintf("Resolved %d filters. %s", len(out.Filters), out.Explanation)
	return mcp.NewToolResultStructured(out, fallback), nil
}

func (h *FiltersHandler) toolShopStatus() mcp.Tool {
	return mcp.NewTool(
		ToolShopStatus,
		mcp.WithDescription("Show when a shop's catalog vocabulary was last synchronized and how large it is."),
		mcp.WithTitleAnnotation("Shop Taxonomy Status"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithString("shop",
			mcp.Description("The shop's myshopify.com domain."),
			mcp.Required(),
		),
	)
}

func (h *FiltersHandler) handleShopStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shop, err := request.RequireString("shop")
	if err != nil {
		return nil, err
	}

	status, err := h.shopService.Status(ctx, shop)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fallback := fmt.Sprintf("%s: %d product types, %d vendors, %d tags, stale=%t",
		shop, status.Taxonomy.ProductTypes, status.Taxonomy.Vendors, status.Taxonomy.Tags, status.Stale)
	return mcp.NewToolResultStructured(status, fallback), nil
}

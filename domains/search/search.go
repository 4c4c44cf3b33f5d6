package search

import (
	"context"

	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
)

type ISearchUsecase interface {
	// Search never returns a Go error: failures are reported in SearchResponse.Error.
	Search(ctx context.Context, request SearchRequest) SearchResponse
	// Resolve runs the same pipeline but returns typed errors, for callers that are not the storefront.
	Resolve(ctx context.Context, request SearchRequest) (filterDomain.Result, error)
}

// SearchRequest is the storefront widget payload. Shop and ClientIP come from the transport.
type SearchRequest struct {
	Shop             string                         `json:"-"`
	ClientIP         string                         `json:"-"`
	Query            string                         `json:"query"`
	CollectionHandle string                         `json:"collectionHandle"`
	AvailableFilters []filterDomain.AvailableFilter `json:"availableFilters"`
}

type SearchResponse struct {
	Filters     []filterDomain.Filter `json:"filters"`
	Explanation *string               `json:"explanation"`
	SearchQuery *string               `json:"searchQuery"`
	Error       *string               `json:"error"`
}

func ErrorResponse(message string) SearchResponse {
	return SearchResponse{Error: &message}
}

func ResultResponse(res filterDomain.Result) SearchResponse {
	out := SearchResponse{
		Filters:     res.Filters,
		Explanation: &res.Explanation,
	}
	if out.Filters == nil {
		out.Filters = []filterDomain.Filter{}
	}
	if res.SearchQuery != "" {
		out.SearchQuery = &res.SearchQuery
	}
	return out
}

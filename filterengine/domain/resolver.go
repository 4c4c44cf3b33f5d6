package domain

import (
	"context"

	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
)

// ResolveInput is everything the resolver needs for one query.
type ResolveInput struct {
	Query            string
	CollectionHandle string
	AvailableFilters []AvailableFilter
	Taxonomy         taxonomyDomain.Context
}

type IResolver interface {
	Resolve(ctx context.Context, in ResolveInput) (Result, error)
}

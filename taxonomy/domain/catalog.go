package domain

import "context"

// ListKind selects one of the catalog's paginated vocabulary listings.
type ListKind string

const (
	ListProductTypes ListKind = "productTypes"
	ListVendors      ListKind = "productVendors"
	ListTags         ListKind = "productTags"
)

type Page struct {
	Items       []string
	HasNextPage bool
	EndCursor   string
}

// PricePoint is the price of the cheapest or most expensive product.
type PricePoint struct {
	Amount   float64
	Currency string
	Found    bool
}

// ProductOptions lists the variant options of one sampled product.
type ProductOptions struct {
	Options []VariantOption
}

// CatalogSource reads vocabulary from the commerce platform.
type CatalogSource interface {
	ListPage(ctx context.Context, shop Shop, kind ListKind, after string) (Page, error)
	PriceExtreme(ctx context.Context, shop Shop, highest bool) (PricePoint, error)
	SampleProducts(ctx context.Context, shop Shop, limit int) ([]ProductOptions, error)
}

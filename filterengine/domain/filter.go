package domain

import (
	"strconv"
	"strings"
)

// PriceRange bounds are in store-currency major units. Some themes read
// filter.v.price.* in minor units (cents); that mapping is left to the caller.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

type VariantOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Filter is one storefront narrowing condition. A zero Filter is meaningless.
type Filter struct {
	ProductType   string         `json:"productType,omitempty"`
	ProductVendor string         `json:"productVendor,omitempty"`
	Tag           string         `json:"tag,omitempty"`
	Available     *bool          `json:"available,omitempty"`
	Price         *PriceRange    `json:"price,omitempty"`
	VariantOption *VariantOption `json:"variantOption,omitempty"`
}

func (f Filter) IsEmpty() bool {
	return !f.HasNonPrice() && f.Price == nil
}

// HasNonPrice reports whether any dimension other than price is set.
func (f Filter) HasNonPrice() bool {
	return f.ProductType != "" || f.ProductVendor != "" || f.Tag != "" ||
		f.Available != nil || f.VariantOption != nil
}

// Result is the outcome of resolving one query.
type Result struct {
	Filters     []Filter `json:"filters"`
	Explanation string   `json:"explanation"`
	SearchQuery string   `json:"searchQuery,omitempty"`
	LatencyMs   int64    `json:"latencyMs"`

	// Usage is set only when a model call happened.
	Usage *UsageStats `json:"-"`
}

// IsEmpty reports a "no match" result: no filters and no free-text fallback.
func (r Result) IsEmpty() bool {
	return len(r.Filters) == 0 && strings.TrimSpace(r.SearchQuery) == ""
}

// AvailableFilterValue is one option scraped from the storefront filter UI.
type AvailableFilterValue struct {
	Label     string   `json:"label"`
	Value     string   `json:"value,omitempty"`
	ParamName string   `json:"paramName"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// AvailableFilter is a filter group present on the current storefront page.
// Type is "price_range" for price groups and empty otherwise.
type AvailableFilter struct {
	Name   string                 `json:"name"`
	Type   string                 `json:"type,omitempty"`
	Values []AvailableFilterValue `json:"values"`
}

const PriceRangeType = "price_range"

// StorefrontParam is one URL query parameter consumed by the storefront.
type StorefrontParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StorefrontParams maps filters to the storefront's native filter parameters.
func StorefrontParams(filters []Filter) []StorefrontParam {
	var params []StorefrontParam
	add := func(name, value string) {
		params = append(params, StorefrontParam{Name: name, Value: value})
	}

	for _, f := range filters {
		if f.ProductType != "" {
			add("filter.p.product_type", f.ProductType)
		}
		if f.ProductVendor != "" {
			add("filter.p.vendor", f.ProductVendor)
		}
		if f.Tag != "" {
			add("filter.p.tag", f.Tag)
		}
		if f.Available != nil {
			v := "0"
			if *f.Available {
				v = "1"
			}
			add("filter.v.availability", v)
		}
		if f.Price != nil {
			if f.Price.Min != nil {
				add("filter.v.price.gte", formatPrice(*f.Price.Min))
			}
			if f.Price.Max != nil {
				add("filter.v.price.lte", formatPrice(*f.Price.Max))
			}
		}
		if f.VariantOption != nil {
			add("filter.v.option."+strings.ToLower(f.VariantOption.Name), f.VariantOption.Value)
		}
	}
	return params
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

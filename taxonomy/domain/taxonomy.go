package domain

import "strings"

type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

type VariantOption struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Context is a shop's catalog vocabulary snapshot.
type Context struct {
	ProductTypes   []string        `json:"productTypes"`
	Vendors        []string        `json:"vendors"`
	Tags           []string        `json:"tags"`
	PriceRange     PriceRange      `json:"priceRange"`
	VariantOptions []VariantOption `json:"variantOptions"`
}

func (c Context) IsEmpty() bool {
	return len(c.ProductTypes) == 0 && len(c.Vendors) == 0 && len(c.Tags) == 0 &&
		len(c.VariantOptions) == 0 && !c.HasPriceRange()
}

func (c Context) HasPriceRange() bool {
	return c.PriceRange.Min != 0 || c.PriceRange.Max != 0
}

// OptionNames lists variant option names in catalog order.
func (c Context) OptionNames() []string {
	names := make([]string, 0, len(c.VariantOptions))
	for _, o := range c.VariantOptions {
		names = append(names, o.Name)
	}
	return names
}

// OptionValues returns the values of the option group called name, case-insensitively.
func (c Context) OptionValues(name string) ([]string, bool) {
	for _, o := range c.VariantOptions {
		if strings.EqualFold(o.Name, name) {
			return o.Values, true
		}
	}
	return nil, false
}

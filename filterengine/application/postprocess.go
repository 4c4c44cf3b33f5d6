package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/pkg/fuzzy"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
)

// ToolArguments is the decoded set_filters payload before post-processing.
type ToolArguments struct {
	Filters     []map[string]any
	SearchQuery string
	Explanation string
}

// ParseToolArguments decodes the model's raw JSON, keeping numbers lossless.
func ParseToolArguments(raw string) (ToolArguments, error) {
	var payload struct {
		Filters     []any `json:"filters"`
		SearchQuery any   `json:"searchQuery"`
		Explanation any   `json:"explanation"`
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return ToolArguments{}, fmt.Errorf("decode tool arguments: %w", err)
	}

	out := ToolArguments{
		SearchQuery: strings.TrimSpace(asString(payload.SearchQuery)),
		Explanation: strings.TrimSpace(asString(payload.Explanation)),
	}
	for _, item := range payload.Filters {
		if obj, ok := item.(map[string]any); ok {
			out.Filters = append(out.Filters, obj)
		}
	}
	return out, nil
}

// Sanitize turns raw filter objects into typed filters, dropping anything left empty.
func Sanitize(raw []map[string]any) []domain.Filter {
	out := make([]domain.Filter, 0, len(raw))
	for _, obj := range raw {
		var f domain.Filter
		f.ProductType = strings.TrimSpace(asString(obj["productType"]))
		f.ProductVendor = strings.TrimSpace(asString(obj["productVendor"]))
		f.Tag = strings.TrimSpace(asString(obj["tag"]))

		if v, ok := asBool(obj["available"]); ok {
			f.Available = &v
		}

		if p, ok := obj["price"].(map[string]any); ok {
			f.Price = sanitizePrice(p)
		}

		if vo, ok := obj["variantOption"].(map[string]any); ok {
			name := strings.TrimSpace(asString(vo["name"]))
			value := strings.TrimSpace(asString(vo["value"]))
			if name != "" && value != "" {
				f.VariantOption = &domain.VariantOption{Name: name, Value: value}
			}
		}

		if !f.IsEmpty() {
			out = append(out, f)
		}
	}
	return out
}

func sanitizePrice(p map[string]any) *domain.PriceRange {
	var pr domain.PriceRange
	if v, ok := asFloat(p["min"]); ok {
		pr.Min = &v
	}
	if v, ok := asFloat(p["max"]); ok {
		pr.Max = &v
	}
	if pr.Min == nil && pr.Max == nil {
		return nil
	}
	normalizePrice(&pr)
	return &pr
}

func normalizePrice(pr *domain.PriceRange) {
	if pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
		pr.Min, pr.Max = pr.Max, pr.Min
	}
}

// Merge folds every price sub-object into one range (min of mins, max of maxes)
// carried by a single trailing filter. Other dimensions are kept as they were.
func Merge(filters []domain.Filter) []domain.Filter {
	priced := 0
	for _, f := range filters {
		if f.Price != nil {
			priced++
		}
	}
	if priced < 2 {
		return filters
	}

	var merged domain.PriceRange
	out := make([]domain.Filter, 0, len(filters))
	for _, f := range filters {
		if f.Price != nil {
			merged.Min = pickFloat(merged.Min, f.Price.Min, math.Min)
			merged.Max = pickFloat(merged.Max, f.Price.Max, math.Max)
			f.Price = nil
			if f.IsEmpty() {
				continue
			}
		}
		out = append(out, f)
	}

	if merged.Min != nil || merged.Max != nil {
		normalizePrice(&merged)
		out = append(out, domain.Filter{Price: &merged})
	}
	return out
}

func pickFloat(acc, v *float64, choose func(a, b float64) float64) *float64 {
	if v == nil {
		return acc
	}
	if acc == nil {
		x := *v
		return &x
	}
	x := choose(*acc, *v)
	return &x
}

// CorrectFilters snaps filter values onto the shop's vocabulary. Variant values are
// matched against the option group the name resolved to, not the name the model wrote.
func CorrectFilters(filters []domain.Filter, tax taxonomyDomain.Context, threshold float64) []domain.Filter {
	out := make([]domain.Filter, len(filters))
	for i, f := range filters {
		if f.ProductType != "" {
			f.ProductType = fuzzy.MatchValue(f.ProductType, tax.ProductTypes, threshold)
		}
		if f.ProductVendor != "" {
			f.ProductVendor = fuzzy.MatchValue(f.ProductVendor, tax.Vendors, threshold)
		}
		if f.Tag != "" {
			f.Tag = fuzzy.MatchValue(f.Tag, tax.Tags, threshold)
		}
		if f.VariantOption != nil {
			vo := *f.VariantOption
			vo.Name = fuzzy.MatchValue(vo.Name, tax.OptionNames(), threshold)
			if values, ok := tax.OptionValues(vo.Name); ok {
				vo.Value = fuzzy.MatchValue(vo.Value, values, threshold)
			}
			f.VariantOption = &vo
		}
		out[i] = f
	}
	return out
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func asBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return b, err == nil
	default:
		return false, false
	}
}

func asFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), "$"))
		n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

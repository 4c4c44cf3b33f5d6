package application

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
)

const SetFiltersTool = "set_filters"

const systemPrompt = `You translate a shopper's search into storefront filters for an online store.
Call the set_filters tool exactly once.

Rules:
- Only use values that appear in the store catalog or in the filters available on the current page. Never invent values.
- When a word in the query is a synonym, plural or part of a catalog value, use the catalog value.
- Prefer values from the filters available on the current page over any other source.
- Only add a price filter when the query explicitly mentions price, budget or cost. Prices are in the store currency's major units.
- Put descriptive words that do not map to any filter into searchQuery instead of inventing a filter.
- Each filter object sets exactly one dimension.
- The explanation is one short sentence addressed to the shopper.`

// SetFiltersDefinition is the structured-output contract forced on the model.
func SetFiltersDefinition() domain.ToolDefinition {
	str := func(desc string) map[string]any { return map[string]any{"type": "string", "description": desc} }

	filter := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"productType":   str("A product type from the catalog."),
			"productVendor": str("A vendor from the catalog."),
			"tag":           str("A product tag from the catalog."),
			"available":     map[string]any{"type": "boolean", "description": "true for in-stock items only."},
			"price": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"min": map[string]any{"type": "number"},
					"max": map[string]any{"type": "number"},
				},
			},
			"variantOption": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":  str("Variant option name, e.g. Color or Size."),
					"value": str("Variant option value."),
				},
				"required": []string{"name", "value"},
			},
		},
	}

	return domain.ToolDefinition{
		Name:        SetFiltersTool,
		Description: "Apply storefront filters that match the shopper's query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filters":     map[string]any{"type": "array", "items": filter},
				"searchQuery": str("Descriptive terms with no matching filter, used as a free-text search. Empty when everything mapped to filters."),
				"explanation": str("One sentence describing the applied filters."),
			},
			"required": []string{"filters", "explanation"},
		},
	}
}

// BuildPrompt returns the system and user messages for one query.
func BuildPrompt(in domain.ResolveInput) (string, string) {
	var b strings.Builder

	fmt.Fprintf(&b, "Shopper query: %q\n", in.Query)
	collection := strings.TrimSpace(in.CollectionHandle)
	if collection == "" {
		collection = domain.AllCollectionsToken
	}
	fmt.Fprintf(&b, "Collection: %s\n", collection)

	if block := catalogBlock(in.Taxonomy); block != "" {
		b.WriteString("\nStore catalog:\n")
		b.WriteString(block)
	}

	if block := availableFiltersBlock(in.AvailableFilters); block != "" {
		b.WriteString("\nFilters available on this page (prefer these values):\n")
		b.WriteString(block)
	}

	return systemPrompt, b.String()
}

// catalogBlock lists only non-empty taxonomy fields.
func catalogBlock(tax taxonomyDomain.Context) string {
	if tax.IsEmpty() {
		return ""
	}
	var b strings.Builder
	list := func(label string, values []string) {
		if len(values) > 0 {
			fmt.Fprintf(&b, "- %s: %s\n", label, strings.Join(values, ", "))
		}
	}
	list("Product types", tax.ProductTypes)
	list("Vendors", tax.Vendors)
	list("Tags", tax.Tags)
	if tax.HasPriceRange() {
		fmt.Fprintf(&b, "- Price range: %s to %s %s\n",
			formatAmount(tax.PriceRange.Min), formatAmount(tax.PriceRange.Max), tax.PriceRange.Currency)
	}
	for _, opt := range tax.VariantOptions {
		list("Option "+opt.Name, opt.Values)
	}
	return b.String()
}

func availableFiltersBlock(filters []domain.AvailableFilter) string {
	var b strings.Builder
	for _, f := range filters {
		if f.Name == "" || len(f.Values) == 0 {
			continue
		}
		if f.Type == domain.PriceRangeType {
			for _, v := range f.Values {
				fmt.Fprintf(&b, "- %s (price range, param %s)", f.Name, v.ParamName)
				if v.Min != nil || v.Max != nil {
					fmt.Fprintf(&b, ": %s to %s", optAmount(v.Min), optAmount(v.Max))
				}
				b.WriteString("\n")
			}
			continue
		}
		labels := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			if v.Label != "" {
				labels = append(labels, v.Label)
			}
		}
		if len(labels) > 0 {
			fmt.Fprintf(&b, "- %s: %s\n", f.Name, strings.Join(labels, ", "))
		}
	}
	return b.String()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optAmount(v *float64) string {
	if v == nil {
		return "any"
	}
	return formatAmount(*v)
}

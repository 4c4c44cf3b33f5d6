package application

import (
	"strings"

	"github.com/AzielCF/az-smartfilter/taxonomy/domain"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// BuildVariantOptions merges sampled product options into name -> distinct values,
// keeping first-seen order for both names and values.
func BuildVariantOptions(products []domain.ProductOptions) []domain.VariantOption {
	groups := orderedmap.New[string, *orderedmap.OrderedMap[string, struct{}]]()

	for _, p := range products {
		for _, opt := range p.Options {
			name := strings.TrimSpace(opt.Name)
			if name == "" || isPlaceholder(opt) {
				continue
			}
			values, ok := groups.Get(name)
			if !ok {
				values = orderedmap.New[string, struct{}]()
				groups.Set(name, values)
			}
			for _, v := range opt.Values {
				v = strings.TrimSpace(v)
				if v == "" {
					continue
				}
				if _, seen := values.Get(v); !seen && values.Len() >= MaxOptionValues {
					break
				}
				values.Set(v, struct{}{})
			}
		}
	}

	out := make([]domain.VariantOption, 0, groups.Len())
	for g := groups.Oldest(); g != nil; g = g.Next() {
		if g.Value.Len() == 0 {
			continue
		}
		vals := make([]string, 0, g.Value.Len())
		for v := g.Value.Oldest(); v != nil; v = v.Next() {
			vals = append(vals, v.Key)
		}
		out = append(out, domain.VariantOption{Name: g.Key, Values: vals})
	}
	return out
}

func isPlaceholder(opt domain.VariantOption) bool {
	return len(opt.Values) == 1 && opt.Values[0] == SingleVariantPlaceholder
}

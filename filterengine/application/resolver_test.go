package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	taxonomyDomain "github.com/AzielCF/az-smartfilter/taxonomy/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	call    *domain.ToolCall
	err     error
	block   bool
	lastReq domain.ToolRequest
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) CallTool(ctx context.Context, req domain.ToolRequest) (*domain.ToolCall, error) {
	p.lastReq = req
	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return p.call, p.err
}

func toolCall(args string) *domain.ToolCall {
	return &domain.ToolCall{Name: SetFiltersTool, Arguments: args}
}

func TestResolve_RedShoesUnder50(t *testing.T) {
	provider := &fakeProvider{call: toolCall(`{
		"filters":[
			{"variantOption":{"name":"colour","value":"red"}},
			{"productType":"shoe"},
			{"price":{"max":"50"}}
		],
		"explanation":"Red shoes under 50."
	}`)}
	r := NewResolver(provider, "gpt-test", time.Second)

	res, err := r.Resolve(context.Background(), domain.ResolveInput{
		Query: "red shoes under 50",
		Taxonomy: taxonomyDomain.Context{
			ProductTypes:   []string{"Shoes"},
			VariantOptions: []taxonomyDomain.VariantOption{{Name: "Color", Values: []string{"Red"}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.Filter{
		{VariantOption: &domain.VariantOption{Name: "Color", Value: "Red"}},
		{ProductType: "Shoes"},
		{Price: &domain.PriceRange{Max: f64(50)}},
	}, res.Filters)
	assert.Empty(t, res.SearchQuery)
	assert.Equal(t, "Red shoes under 50.", res.Explanation)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))

	assert.Equal(t, "gpt-test", provider.lastReq.Model)
	assert.Equal(t, SetFiltersTool, provider.lastReq.Tool.Name)
	assert.Contains(t, provider.lastReq.UserPrompt, "Product types: Shoes")
}

func TestResolve_CozySweater(t *testing.T) {
	provider := &fakeProvider{call: toolCall(`{"filters":[{"productType":"sweaters"}],"searchQuery":"cozy","explanation":"Sweaters."}`)}
	r := NewResolver(provider, "", time.Second)

	res, err := r.Resolve(context.Background(), domain.ResolveInput{
		Query:    "cozy sweater",
		Taxonomy: taxonomyDomain.Context{ProductTypes: []string{"Sweater"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Filter{{ProductType: "Sweater"}}, res.Filters)
	assert.Contains(t, res.SearchQuery, "cozy")
}

func TestResolve_TimeoutIsNotAnError(t *testing.T) {
	r := NewResolver(&fakeProvider{block: true}, "", 20*time.Millisecond)

	res, err := r.Resolve(context.Background(), domain.ResolveInput{Query: "anything"})
	require.NoError(t, err)
	assert.Equal(t, TimeoutExplanation, res.Explanation)
	assert.NotNil(t, res.Filters)
	assert.Empty(t, res.Filters)
	assert.True(t, res.IsEmpty())
}

func TestResolve_TransportErrorPropagates(t *testing.T) {
	r := NewResolver(&fakeProvider{err: errors.New("401 unauthorized")}, "", time.Second)

	_, err := r.Resolve(context.Background(), domain.ResolveInput{Query: "x"})
	assert.ErrorContains(t, err, "401 unauthorized")
}

func TestResolve_NoToolCall(t *testing.T) {
	cases := map[string]*domain.ToolCall{
		"no call":      nil,
		"other tool":   {Name: "search_web", Arguments: `{}`},
		"broken json":  toolCall(`{"filters":[{"tag":`),
		"wrong shapes": toolCall(`{"filters":"tag"}`),
	}
	for name, call := range cases {
		t.Run(name, func(t *testing.T) {
			r := NewResolver(&fakeProvider{call: call}, "", time.Second)
			res, err := r.Resolve(context.Background(), domain.ResolveInput{Query: "x"})
			require.NoError(t, err)
			assert.Equal(t, NoToolCallExplanation, res.Explanation)
			assert.Empty(t, res.Filters)
		})
	}
}

func TestResolve_MergesBeforeCorrecting(t *testing.T) {
	provider := &fakeProvider{call: toolCall(`{"filters":[{"price":{"min":20}},{"price":{"max":80}},{"tag":"sales"}],"explanation":"x"}`)}
	r := NewResolver(provider, "", time.Second)

	res, err := r.Resolve(context.Background(), domain.ResolveInput{
		Query:    "sale between 20 and 80",
		Taxonomy: taxonomyDomain.Context{Tags: []string{"Sale"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.Filter{
		{Tag: "Sale"},
		{Price: &domain.PriceRange{Min: f64(20), Max: f64(80)}},
	}, res.Filters)
}

func TestResolve_CarriesUsage(t *testing.T) {
	usage := &domain.UsageStats{Model: "gpt-test", InputTokens: 120, OutputTokens: 30, CostUSD: 0.01}
	call := toolCall(`{"filters":[{"productVendor":"Acme"}],"explanation":"Acme."}`)
	call.Usage = usage
	r := NewResolver(&fakeProvider{call: call}, "gpt-test", time.Second)

	res, err := r.Resolve(context.Background(), domain.ResolveInput{
		Query:    "acme",
		Taxonomy: taxonomyDomain.Context{Vendors: []string{"Acme"}},
	})
	require.NoError(t, err)
	assert.Same(t, usage, res.Usage)

	broken := &domain.ToolCall{Name: SetFiltersTool, Arguments: "{", Usage: usage}
	r = NewResolver(&fakeProvider{call: broken}, "gpt-test", time.Second)
	res, err = r.Resolve(context.Background(), domain.ResolveInput{Query: "acme"})
	require.NoError(t, err)
	assert.Same(t, usage, res.Usage)
	assert.Equal(t, NoToolCallExplanation, res.Explanation)
}

package validations

import (
	"context"
	"strings"
	"testing"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	filterDomain "github.com/AzielCF/az-smartfilter/filterengine/domain"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSearchRequest(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, ValidateSearchRequest(ctx, domainSearch.SearchRequest{Query: "red shoes"}, 500))

	err := ValidateSearchRequest(ctx, domainSearch.SearchRequest{Query: "   "}, 500)
	require.Error(t, err)
	assert.IsType(t, pkgError.ValidationError(""), err)
	assert.Equal(t, "Please enter a search query.", err.Error())

	err = ValidateSearchRequest(ctx, domainSearch.SearchRequest{Query: strings.Repeat("a", 501)}, 500)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max 500")

	// multibyte characters count once
	assert.NoError(t, ValidateSearchRequest(ctx, domainSearch.SearchRequest{Query: strings.Repeat("é", 500)}, 500))

	err = ValidateSearchRequest(ctx, domainSearch.SearchRequest{
		Query:            "boots",
		AvailableFilters: make([]filterDomain.AvailableFilter, MaxAvailableFilters+1),
	}, 500)
	assert.EqualError(t, err, "Invalid request body.")
}

func TestValidateShopDomain(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateShopDomain(ctx, "acme-store.myshopify.com"))
	assert.Error(t, ValidateShopDomain(ctx, ""))
	assert.Error(t, ValidateShopDomain(ctx, "acme.example.com"))
	assert.Error(t, ValidateShopDomain(ctx, "ACME.myshopify.com"))
}

func TestValidateUpsertShop(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, ValidateUpsertShop(ctx, domainShop.UpsertShopRequest{Domain: "acme.myshopify.com", AccessToken: "shpat_x"}))

	err := ValidateUpsertShop(ctx, domainShop.UpsertShopRequest{Domain: "acme.myshopify.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token")
}

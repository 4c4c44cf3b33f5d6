package validations

import (
	"context"
	"fmt"
	"strings"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultQueryMaxLength   = 500
	MaxAvailableFilters     = 100
	MaxCollectionHandleSize = 255
)

// ValidateSearchRequest checks the storefront payload. Messages are shown to shoppers as is.
func ValidateSearchRequest(ctx context.Context, request domainSearch.SearchRequest, maxLength int) error {
	if maxLength <= 0 {
		maxLength = DefaultQueryMaxLength
	}

	query := strings.TrimSpace(request.Query)
	err := validation.ValidateWithContext(ctx, query,
		validation.Required.Error("Please enter a search query."),
		validation.RuneLength(1, maxLength).Error(fmt.Sprintf("Search query is too long (max %d characters).", maxLength)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	err = validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.CollectionHandle, validation.RuneLength(0, MaxCollectionHandleSize)),
		validation.Field(&request.AvailableFilters, validation.Length(0, MaxAvailableFilters)),
	)
	if err != nil {
		return pkgError.ValidationError("Invalid request body.")
	}

	return nil
}

package validations

import (
	"context"
	"regexp"

	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

func ValidateShopDomain(ctx context.Context, shopDomain string) error {
	err := validation.ValidateWithContext(ctx, shopDomain,
		validation.Required,
		validation.Match(shopDomainPattern).Error("must be a *.myshopify.com domain"),
	)
	if err != nil {
		return pkgError.ValidationError("shop: " + err.Error())
	}
	return nil
}

func ValidateUpsertShop(ctx context.Context, request domainShop.UpsertShopRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Domain, validation.Required, validation.Match(shopDomainPattern).Error("must be a *.myshopify.com domain")),
		validation.Field(&request.AccessToken, validation.Required),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

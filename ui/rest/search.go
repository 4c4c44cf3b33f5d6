package rest

import (
	"strings"

	domainSearch "github.com/AzielCF/az-smartfilter/domains/search"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	ShopHeader         = "X-Shop-Domain"
	MsgInvalidBody     = "Invalid request body."
	storefrontBodySize = 64 * 1024
)

type Search struct {
	Service domainSearch.ISearchUsecase
}

// InitRestSearch registers the storefront endpoint. It sits outside basic auth;
// the shop identity is checked by the usecase.
func InitRestSearch(app fiber.Router, service domainSearch.ISearchUsecase) Search {
	rest := Search{Service: service}
	app.Post("/proxy/search", rest.Search)
	return rest
}

// Search always answers 200; failures travel in the "error" field.
func (handler *Search) Search(c *fiber.Ctx) error {
	if len(c.Body()) == 0 || len(c.Body()) > storefrontBodySize {
		return c.JSON(domainSearch.ErrorResponse(MsgInvalidBody))
	}

	var request domainSearch.SearchRequest
	if err := c.BodyParser(&request); err != nil {
		logrus.WithError(err).Debug("[SEARCH] Invalid storefront payload")
		return c.JSON(domainSearch.ErrorResponse(MsgInvalidBody))
	}

	request.Shop = shopFromRequest(c)
	request.ClientIP = c.IP()

	return c.JSON(handler.Service.Search(c.UserContext(), request))
}

func shopFromRequest(c *fiber.Ctx) string {
	shop := c.Query("shop")
	if shop == "" {
		shop = c.Get(ShopHeader)
	}
	return strings.ToLower(strings.TrimSpace(shop))
}

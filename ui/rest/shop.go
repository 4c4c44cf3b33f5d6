package rest

import (
	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	pkgError "github.com/AzielCF/az-smartfilter/pkg/error"
	"github.com/AzielCF/az-smartfilter/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Shop struct {
	Service domainShop.IShopUsecase
}

func InitRestShop(app fiber.Router, service domainShop.IShopUsecase) Shop {
	rest := Shop{Service: service}
	app.Post("/shops", rest.Upsert)
	app.Get("/shops/:shop", rest.Status)
	app.Post("/shops/:shop/sync", rest.Sync)
	app.Post("/shops/:shop/catalog-changed", rest.CatalogChanged)
	app.Get("/shops/:shop/queries", rest.RecentQueries)

	return rest
}

func (handler *Shop) Upsert(c *fiber.Ctx) error {
	var request domainShop.UpsertShopRequest
	if err := c.BodyParser(&request); err != nil {
		utils.PanicIfNeeded(pkgError.ValidationError("invalid request body"))
	}

	shop, err := handler.Service.Upsert(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Shop saved",
		Results: shop,
	})
}

func (handler *Shop) Status(c *fiber.Ctx) error {
	status, err := handler.Service.Status(c.UserContext(), c.Params("shop"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Shop status retrieved",
		Results: status,
	})
}

func (handler *Shop) Sync(c *fiber.Ctx) error {
	result, err := handler.Service.Sync(c.UserContext(), c.Params("shop"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Taxonomy synchronized",
		Results: result,
	})
}

func (handler *Shop) CatalogChanged(c *fiber.Ctx) error {
	flushed, err := handler.Service.CatalogChanged(c.UserContext(), c.Params("shop"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Taxonomy marked stale",
		Results: fiber.Map{"flushed_entries": flushed},
	})
}

func (handler *Shop) RecentQueries(c *fiber.Ctx) error {
	logs, err := handler.Service.RecentQueries(c.UserContext(), c.Params("shop"), c.QueryInt("limit"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Recent queries retrieved",
		Results: logs,
	})
}

package rest

import (
	domainShop "github.com/AzielCF/az-smartfilter/domains/shop"
	"github.com/AzielCF/az-smartfilter/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Cache struct {
	Service domainShop.IShopUsecase
}

func InitRestCache(app fiber.Router, service domainShop.IShopUsecase) Cache {
	rest := Cache{Service: service}
	app.Get("/cache/stats", rest.GetStats)
	app.Post("/shops/:shop/cache/flush", rest.FlushShop)

	return rest
}

func (handler *Cache) GetStats(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Query cache stats retrieved",
		Results: handler.Service.CacheStats(c.UserContext()),
	})
}

func (handler *Cache) FlushShop(c *fiber.Ctx) error {
	flushed, err := handler.Service.FlushCache(c.UserContext(), c.Params("shop"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Shop cache flushed",
		Results: fiber.Map{"flushed_entries": flushed},
	})
}

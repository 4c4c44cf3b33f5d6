package rest

import (
	"github.com/AzielCF/az-smartfilter/pkg/resolvemonitor"
	"github.com/gofiber/fiber/v2"
)

// GetResolveStats returns running resolution totals and the most recent queries.
func GetResolveStats(c *fiber.Ctx) error {
	return c.JSON(resolvemonitor.GetStats())
}

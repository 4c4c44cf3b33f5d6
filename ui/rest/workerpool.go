package rest

import (
	"github.com/AzielCF/az-smartfilter/pkg/bgworker"
	"github.com/gofiber/fiber/v2"
)

// backgroundPool is set by the command wiring.
var backgroundPool *bgworker.Pool

func SetBackgroundPool(pool *bgworker.Pool) {
	backgroundPool = pool
}

// GetWorkerPoolStats returns real-time background pool statistics
func GetWorkerPoolStats(c *fiber.Ctx) error {
	if backgroundPool == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Background worker pool not initialized",
		})
	}
	return c.JSON(backgroundPool.GetStats())
}

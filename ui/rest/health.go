package rest

import (
	"github.com/AzielCF/az-smartfilter/domains/health"
	"github.com/AzielCF/az-smartfilter/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	Service health.IHealthUsecase
}

func InitRestHealth(app fiber.Router, service health.IHealthUsecase) Health {
	handler := Health{Service: service}

	group := app.Group("/health")
	group.Get("/", handler.GetStatus)
	group.Post("/check-all", handler.CheckAll)

	return handler
}

func (h *Health) GetStatus(c *fiber.Ctx) error {
	return h.respond(c, h.Service.GetStatus(c.UserContext()), "Health status retrieved")
}

func (h *Health) CheckAll(c *fiber.Ctx) error {
	return h.respond(c, h.Service.CheckAll(c.UserContext()), "Health check completed")
}

func (h *Health) respond(c *fiber.Ctx, records []health.HealthRecord, message string) error {
	if !h.Service.Healthy(records) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNHEALTHY",
			Message: "One or more dependencies are failing",
			Results: records,
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: message,
		Results: records,
	})
}

package controller

import (
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IStatusController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	ListEmotions(ctx *fiber.Ctx) error
}

type statusController struct {
	service service.ICompanionService
}

func NewStatusController(service service.ICompanionService) IStatusController {
	return &statusController{service: service}
}

func (c *statusController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/emotions/list", c.ListEmotions)
}

func (c *statusController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("OK", c.service.Health()))
}

func (c *statusController) ListEmotions(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get emotions", c.service.ListEmotions()))
}

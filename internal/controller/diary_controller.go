package controller

import (
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IDiaryController interface {
	RegisterRoutes(r fiber.Router)
	Generate(ctx *fiber.Ctx) error
}

type diaryController struct {
	service service.ICompanionService
}

func NewDiaryController(service service.ICompanionService) IDiaryController {
	return &diaryController{service: service}
}

func (c *diaryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/diary")
	h.Post("/generate", c.Generate)
}

func (c *diaryController) Generate(ctx *fiber.Ctx) error {
	sessionID, err := sessionIDFromRequest(ctx)
	if err != nil {
		return err
	}
	res, err := c.service.GenerateDiary(ctx.UserContext(), sessionID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Diary generated", res))
}

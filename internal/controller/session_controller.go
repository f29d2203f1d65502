package controller

import (
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ICompanionService
}

func NewSessionController(service service.ICompanionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/session")
	h.Post("/create", c.Create)
	h.Post("/reset", c.Reset)
	h.Get("/history", c.History)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.service.CreateSession(ctx.UserContext())
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Session created", res))
}

func (c *sessionController) Reset(ctx *fiber.Ctx) error {
	sessionID, err := sessionIDFromRequest(ctx)
	if err != nil {
		return err
	}
	if err := c.service.Reset(ctx.UserContext(), sessionID); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Conversation reset", fiber.Map{"session_id": sessionID}))
}

func (c *sessionController) History(ctx *fiber.Ctx) error {
	sessionID, err := resolveSessionID(ctx, ctx.Query("session_id"))
	if err != nil {
		return err
	}
	res, err := c.service.GetHistory(ctx.UserContext(), sessionID)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get history", res))
}

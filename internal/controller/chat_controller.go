package controller

import (
	"io"
	"path/filepath"
	"strings"

	"emotion-diary-be/internal/dto"
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/service"
	"emotion-diary-be/pkg/conversation"

	"github.com/gofiber/fiber/v2"
)

// MaxAudioBytes caps a single voice upload.
const MaxAudioBytes = 16 * 1024 * 1024

var allowedAudioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
	".webm": true,
	".m4a":  true,
}

type IChatController interface {
	RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler)
	Text(ctx *fiber.Ctx) error
	Voice(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.ICompanionService
}

func NewChatController(service service.ICompanionService) IChatController {
	return &chatController{service: service}
}

func (c *chatController) RegisterRoutes(r fiber.Router, middlewares ...fiber.Handler) {
	h := r.Group("/chat")
	for _, m := range middlewares {
		h.Use(m)
	}
	h.Post("/text", c.Text)
	h.Post("/voice", c.Voice)
}

func (c *chatController) Text(ctx *fiber.Ctx) error {
	var req dto.TextChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sessionID, err := resolveSessionID(ctx, req.SessionID)
	if err != nil {
		return err
	}

	res, err := c.service.SubmitTurn(ctx.UserContext(), sessionID, service.SubmitTurnRequest{
		Text:     req.Text,
		Modality: conversation.ModalityText,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

func (c *chatController) Voice(ctx *fiber.Ctx) error {
	sessionID, err := resolveSessionID(ctx, ctx.FormValue("session_id"))
	if err != nil {
		return err
	}

	file, err := ctx.FormFile("audio")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No audio file provided")
	}
	if file.Filename == "" {
		return fiber.NewError(fiber.StatusBadRequest, "No file selected")
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedAudioExtensions[ext] {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid file type. Allowed: wav, mp3, ogg, webm, m4a")
	}
	if file.Size > MaxAudioBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "Audio file too large")
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()
	audio, err := io.ReadAll(io.LimitReader(f, MaxAudioBytes))
	if err != nil {
		return err
	}

	res, err := c.service.SubmitTurn(ctx.UserContext(), sessionID, service.SubmitTurnRequest{
		Audio:    audio,
		Modality: conversation.ModalityVoice,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success", res))
}

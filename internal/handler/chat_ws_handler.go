package handler

import (
	"context"

	"emotion-diary-be/internal/controller"
	"emotion-diary-be/internal/pkg/logger"
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/service"
	internalWS "emotion-diary-be/internal/websocket"
	"emotion-diary-be/pkg/conversation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ChatWSHandler serves the chat pipeline over a websocket: each JSON
// {"text": ...} frame in yields one turn frame out.
type ChatWSHandler struct {
	service service.ICompanionService
	tokens  *serverutils.SessionTokens
	logger  logger.ILogger
}

func NewChatWSHandler(service service.ICompanionService, tokens *serverutils.SessionTokens, log logger.ILogger) *ChatWSHandler {
	return &ChatWSHandler{
		service: service,
		tokens:  tokens,
		logger:  log,
	}
}

func (h *ChatWSHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/chat/ws", h.Upgrade, websocket.New(h.serve))
}

// Upgrade resolves the session before the handshake. Browsers cannot set
// headers on websocket requests, so the token may also come as ?token=.
func (h *ChatWSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	fromToken := serverutils.SessionIDFromToken(c)
	if fromToken == "" {
		if tokenStr := c.Query("token"); tokenStr != "" {
			id, err := h.tokens.Parse(tokenStr)
			if err != nil {
				h.logger.Warn("WS", "Invalid token in handshake", map[string]interface{}{"error": err.Error()})
				return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
			}
			fromToken = id
		}
	}
	sessionID, err := serverutils.ResolveSessionID(fromToken, c.Query("session_id"))
	if err != nil {
		return err
	}

	c.Locals(serverutils.LocalSessionID, sessionID)
	return c.Next()
}

func (h *ChatWSHandler) serve(c *websocket.Conn) {
	sessionID, _ := c.Locals(serverutils.LocalSessionID).(string)
	h.logger.Info("WS", "Chat session connected", map[string]interface{}{"session_id": sessionID})

	internalWS.ServeWs(c, sessionID, func(ctx context.Context, text string) internalWS.Frame {
		return h.turn(ctx, sessionID, text)
	}, h.logger)

	h.logger.Info("WS", "Chat session disconnected", map[string]interface{}{"session_id": sessionID})
}

func (h *ChatWSHandler) turn(ctx context.Context, sessionID, text string) internalWS.Frame {
	res, err := h.service.SubmitTurn(ctx, sessionID, service.SubmitTurnRequest{
		Text:     text,
		Modality: conversation.ModalityText,
	})
	if err != nil {
		status := serverutils.StatusFor(err, controller.DomainErrorStatus)
		message := err.Error()
		if status == fiber.StatusInternalServerError {
			h.logger.Error("WS", "Turn failed", map[string]interface{}{"session_id": sessionID, "error": err})
			message = "internal server error"
		}
		return internalWS.Frame{Type: internalWS.FrameError, Status: status, Message: message}
	}
	return internalWS.Frame{Type: internalWS.FrameTurn, Data: res}
}

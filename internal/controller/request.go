package controller

import (
	"errors"
	"net/http"

	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/repository/memory"
	"emotion-diary-be/internal/service"
	"emotion-diary-be/pkg/diary"
	"emotion-diary-be/pkg/embedding"
	"emotion-diary-be/pkg/stt"

	"github.com/gofiber/fiber/v2"
)

// DomainErrorStatus maps companion errors to HTTP statuses.
func DomainErrorStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, memory.ErrSessionNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrInput),
		errors.Is(err, diary.ErrEmptyHistory),
		errors.Is(err, stt.ErrTranscription):
		return http.StatusBadRequest, true
	case errors.Is(err, embedding.ErrEncoding),
		errors.Is(err, service.ErrVoiceUnavailable):
		return http.StatusServiceUnavailable, true
	}
	return 0, false
}

// resolveSessionID applies the token/explicit id rule shared with the
// websocket handshake.
func resolveSessionID(ctx *fiber.Ctx, explicit string) (string, error) {
	return serverutils.ResolveSessionID(serverutils.SessionIDFromToken(ctx), explicit)
}

// sessionIDFromRequest reads session_id from the JSON body, the query string
// or a form field, falling back to the session token.
func sessionIDFromRequest(ctx *fiber.Ctx) (string, error) {
	var req struct {
		SessionID string `json:"session_id" form:"session_id"`
	}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return "", fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	if req.SessionID == "" {
		req.SessionID = ctx.Query("session_id")
	}
	return resolveSessionID(ctx, req.SessionID)
}

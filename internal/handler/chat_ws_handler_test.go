package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"emotion-diary-be/internal/dto"
	"emotion-diary-be/internal/pkg/logger"
	"emotion-diary-be/internal/pkg/serverutils"
	"emotion-diary-be/internal/service"
	internalWS "emotion-diary-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompanion struct {
	service.ICompanionService
	err error
}

func (s stubCompanion) SubmitTurn(ctx context.Context, sessionID string, req service.SubmitTurnRequest) (*dto.TurnResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.TurnResponse{SessionID: sessionID, TurnNumber: 1, UserInput: req.Text}, nil
}

func newHandler(err error) *ChatWSHandler {
	return NewChatWSHandler(stubCompanion{err: err}, serverutils.NewSessionTokens("secret"), logger.NewNopLogger())
}

func TestUpgradeRequiresWebsocket(t *testing.T) {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	newHandler(nil).RegisterRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/chat/ws?session_id=s1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestUpgradeResolvesSession(t *testing.T) {
	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	h := newHandler(nil)
	var resolved string
	app.Get("/ws", h.Upgrade, func(c *fiber.Ctx) error {
		resolved = serverutils.SessionIDFromToken(c)
		return c.SendStatus(http.StatusOK)
	})

	upgrade := func(target string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		return req
	}

	resp, err := app.Test(upgrade("/ws"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = app.Test(upgrade("/ws?token=garbage"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err = app.Test(upgrade("/ws?session_id=s1"))
	require.NoError(t, err)
	assert.Equal(t, "s1", resolved)
}

func TestUpgradeTokenAndSessionIDMustAgree(t *testing.T) {
	tokens := serverutils.NewSessionTokens("secret")
	h := NewChatWSHandler(stubCompanion{}, tokens, logger.NewNopLogger())

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware())
	app.Use(tokens.Middleware())
	var resolved string
	app.Get("/ws", h.Upgrade, func(c *fiber.Ctx) error {
		resolved = serverutils.SessionIDFromToken(c)
		return c.SendStatus(http.StatusOK)
	})

	token, err := tokens.Issue("mine", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)

	upgrade := func(target string, bearer bool) *http.Request {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
		if bearer {
			req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
		return req
	}

	tests := []struct {
		name   string
		req    *http.Request
		status int
		want   string
	}{
		{"query token with other id", upgrade("/ws?token="+token+"&session_id=other", false), http.StatusForbidden, ""},
		{"bearer with other id", upgrade("/ws?session_id=other", true), http.StatusForbidden, ""},
		{"query token with same id", upgrade("/ws?token="+token+"&session_id=mine", false), http.StatusOK, "mine"},
		{"bearer alone", upgrade("/ws", true), http.StatusOK, "mine"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolved = ""
			resp, err := app.Test(tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.want, resolved)
		})
	}
}

func TestTurnFrames(t *testing.T) {
	frame := newHandler(nil).turn(context.Background(), "s1", "안녕")
	assert.Equal(t, internalWS.FrameTurn, frame.Type)
	res, ok := frame.Data.(*dto.TurnResponse)
	require.True(t, ok)
	assert.Equal(t, "안녕", res.UserInput)

	frame = newHandler(fmt.Errorf("%w: text is empty", service.ErrInput)).turn(context.Background(), "s1", "")
	assert.Equal(t, internalWS.FrameError, frame.Type)
	assert.Equal(t, http.StatusBadRequest, frame.Status)
	assert.Contains(t, frame.Message, "text is empty")

	frame = newHandler(errors.New("secret detail")).turn(context.Background(), "s1", "안녕")
	assert.Equal(t, http.StatusInternalServerError, frame.Status)
	assert.Equal(t, "internal server error", frame.Message)
}

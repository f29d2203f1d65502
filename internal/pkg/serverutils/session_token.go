package serverutils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalSessionID is the fiber.Ctx local set from a valid session token.
const LocalSessionID = "session_id"

var ErrInvalidSessionToken = errors.New("invalid session token")

type sessionClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// SessionTokens issues and verifies HS256 tokens that carry a session id.
type SessionTokens struct {
	secret []byte
}

func NewSessionTokens(secret string) *SessionTokens {
	return &SessionTokens{secret: []byte(secret)}
}

func (s *SessionTokens) Issue(sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionTokens) Parse(token string) (string, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	return claims.SessionID, nil
}

// Middleware resolves a Bearer session token into LocalSessionID. Requests
// without a token pass through; a malformed or expired token is rejected.
func (s *SessionTokens) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return ctx.Next()
		}
		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}
		sessionID, err := s.Parse(tokenStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
		}
		ctx.Locals(LocalSessionID, sessionID)
		return ctx.Next()
	}
}

// SessionIDFromToken returns the session id resolved by Middleware, if any.
func SessionIDFromToken(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(LocalSessionID).(string)
	return id
}

// ResolveSessionID picks the session a request addresses. A session id
// taken from a verified token decides; an explicit id must then agree with
// it (403 otherwise). With neither, the request is a 400.
func ResolveSessionID(fromToken, explicit string) (string, error) {
	explicit = strings.TrimSpace(explicit)
	switch {
	case fromToken != "" && explicit != "" && explicit != fromToken:
		return "", fiber.NewError(fiber.StatusForbidden, "session_id does not match session token")
	case fromToken != "":
		return fromToken, nil
	case explicit != "":
		return explicit, nil
	}
	return "", fiber.NewError(fiber.StatusBadRequest, "Missing session_id")
}

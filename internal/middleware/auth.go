package middleware

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionCookie is the HttpOnly cookie the login handler sets.
const SessionCookie = "session"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(sessionID, userID uuid.UUID) (*models.User, error)
}

// SessionRequired accepts a bearer token or the session cookie, then checks
// that the session row behind it is still live.
func SessionRequired(cfg *config.Config, auth Authenticator) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:  jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		TokenLookup: "header:Authorization,cookie:" + SessionCookie,
		AuthScheme:  "Bearer",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return unauthorized(c)
		},
		SuccessHandler: func(c *fiber.Ctx) error {
			p, err := resolveSession(c, auth)
			if err != nil {
				if !errors.Is(err, services.ErrSessionInvalid) {
					slog.ErrorContext(c.UserContext(), "session lookup failed", "error", err)
					return fiber.ErrInternalServerError
				}
				return unauthorized(c)
			}
			principal.Set(c, p)
			c.SetUserContext(logging.WithUserID(c.UserContext(), p.UserID.String()))
			return c.Next()
		},
	})
}

func resolveSession(c *fiber.Ctx, auth Authenticator) (principal.Principal, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return principal.Principal{}, services.ErrSessionInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal.Principal{}, services.ErrSessionInvalid
	}

	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return principal.Principal{}, services.ErrSessionInvalid
	}
	sessionID, err := uuid.Parse(sid)
	if err != nil {
		return principal.Principal{}, services.ErrSessionInvalid
	}

	user, err := auth.Authenticate(sessionID, userID)
	if err != nil {
		return principal.Principal{}, err
	}
	return principal.Principal{
		UserID:    user.ID,
		SessionID: sessionID,
		Role:      user.Role,
		Email:     user.Email,
	}, nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: "Unauthorized"})
}

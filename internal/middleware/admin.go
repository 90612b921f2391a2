package middleware

import (
	"crypto/subtle"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/gofiber/fiber/v2"
)

const localAdminToken = "admin_token"

// AdminToken lets requests carrying X-Admin-Token through without a session.
// Everything else goes to session.
func AdminToken(cfg *config.Config, session fiber.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken != "" &&
			subtle.ConstantTimeCompare([]byte(c.Get("X-Admin-Token")), []byte(cfg.AdminToken)) == 1 {
			c.Locals(localAdminToken, true)
			return c.Next()
		}
		return session(c)
	}
}

// AdminRequired checks, in order:
// 1. the admin token header (set by AdminToken)
// 2. the session user's role
// 3. ADMIN_EMAILS, for accounts created before the list changed
func AdminRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if ok, _ := c.Locals(localAdminToken).(bool); ok {
			return c.Next()
		}

		if _, err := principal.GetUserID(c); err != nil {
			return unauthorized(c)
		}
		if principal.GetRole(c) == models.RoleAdmin || contains(cfg.AdminEmailList(), principal.GetEmail(c)) {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: "Admin access required",
		})
	}
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}

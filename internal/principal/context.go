package principal

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys written by the session middleware.
const (
	localUserID    = "user_id"
	localSessionID = "session_id"
	localRole      = "user_role"
	localEmail     = "user_email"
)

var ErrNoPrincipal = errors.New("no authenticated user in context")

// Principal is the authenticated caller of one request.
type Principal struct {
	UserID    uuid.UUID
	SessionID uuid.UUID
	Role      string
	Email     string
}

// Set stores p on the request context.
func Set(c *fiber.Ctx, p Principal) {
	c.Locals(localUserID, p.UserID)
	c.Locals(localSessionID, p.SessionID)
	c.Locals(localRole, p.Role)
	c.Locals(localEmail, p.Email)
}

// GetUserID extracts the authenticated user id from Fiber context locals.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(localUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoPrincipal
	}
	return id, nil
}

func GetSessionID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(localSessionID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, ErrNoPrincipal
	}
	return id, nil
}

func GetRole(c *fiber.Ctx) string {
	role, _ := c.Locals(localRole).(string)
	return role
}

func GetEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(localEmail).(string)
	return email
}

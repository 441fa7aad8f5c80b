package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

// Locals keys set by RequireAuth.
const (
	LocalUserID = "userId"
	LocalRole   = "role"
	LocalUser   = "user"
	LocalToken  = "token"
)

// CurrentUser returns the authenticated user, or nil outside RequireAuth.
func CurrentUser(c *fiber.Ctx) *models.User {
	u, _ := c.Locals(LocalUser).(*models.User)
	return u
}

func CurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok
}

func CurrentRole(c *fiber.Ctx) models.Role {
	r, _ := c.Locals(LocalRole).(models.Role)
	return r
}

func CurrentToken(c *fiber.Ctx) string {
	t, _ := c.Locals(LocalToken).(string)
	return t
}

package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

// RequireRoles lets the request through only when RequireAuth stored one of
// the allowed roles.
func RequireRoles(allowed ...models.Role) fiber.Handler {
	allowedSet := map[models.Role]bool{}
	for _, r := range allowed {
		allowedSet[r] = true
	}

	return func(c *fiber.Ctx) error {
		role := CurrentRole(c)
		if role == "" {
			return unauthorized(c, "Access denied. No token provided.")
		}
		if !allowedSet[role] {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Access denied. Role " + string(role) + " is not authorized.",
			})
		}
		return c.Next()
	}
}

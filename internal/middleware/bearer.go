package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/session"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/utils"
)

// TokenVerifier resolves a bearer token to the user it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.User, *utils.Claims, error)
}

// TokenFromRequest reads the token from "Authorization: Bearer <t>" or, for
// older clients, the x-auth-token header.
func TokenFromRequest(c *fiber.Ctx) string {
	if h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization)); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
	}
	return strings.TrimSpace(c.Get("x-auth-token"))
}

// RequireAuth verifies the request's token and stores the caller in locals.
func RequireAuth(v TokenVerifier, logger *slog.Logger) fiber.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c)
		if token == "" {
			return unauthorized(c, "Access denied. No token provided.")
		}

		u, _, err := v.Verify(c.UserContext(), token)
		switch {
		case err == nil:
		case errors.Is(err, users.ErrUserNotFound):
			return unauthorized(c, "Invalid token. User not found.")
		case errors.Is(err, session.ErrAccountDisabled):
			return unauthorized(c, "Account is disabled.")
		case errors.Is(err, session.ErrInvalidToken):
			return unauthorized(c, "Invalid token.")
		default:
			logger.Error("verify token", slog.String("path", c.Path()), slog.Any("error", err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Server error in authentication",
			})
		}

		c.Locals(LocalUserID, u.ID)
		c.Locals(LocalRole, u.Role)
		c.Locals(LocalUser, u)
		c.Locals(LocalToken, token)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

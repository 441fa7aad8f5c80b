package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/realtime"
)

type WSHandler struct {
	Hub      *realtime.Hub
	Verifier middleware.TokenVerifier
	Logger   *slog.Logger
}

func NewWSHandler(hub *realtime.Hub, verifier middleware.TokenVerifier, logger *slog.Logger) *WSHandler {
	return &WSHandler{Hub: hub, Verifier: verifier, Logger: logger}
}

// Upgrade authenticates the handshake from the token query parameter, since
// browsers cannot set headers on websocket requests, and then upgrades.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token := c.Query("token")
	if token == "" {
		token = middleware.TokenFromRequest(c)
	}
	if token == "" {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}

	u, _, err := h.Verifier.Verify(c.UserContext(), token)
	if err != nil {
		h.Logger.Debug("websocket auth rejected", slog.Any("error", err))
		return fail(c, fiber.StatusUnauthorized, "Invalid token.")
	}

	c.Locals(middleware.LocalUser, u)
	return c.Next()
}

// Stream pumps job events to the authenticated connection.
func (h *WSHandler) Stream() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		u, ok := conn.Locals(middleware.LocalUser).(*models.User)
		if !ok {
			_ = conn.Close()
			return
		}
		realtime.Serve(h.Hub, conn, u.ID, u.Role)
	})
}

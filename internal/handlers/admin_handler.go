package handlers

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
)

type AdminHandler struct {
	Users  *users.Store
	Logger *slog.Logger
}

func NewAdminHandler(store *users.Store, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{Users: store, Logger: logger}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	list, err := h.Users.List(c.UserContext())
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	if list == nil {
		list = []models.User{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   list,
		"total":   len(list),
	})
}

type setRoleReq struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetRole(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	var req setRoleReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	role := models.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	u, err := h.Users.SetRole(c.UserContext(), id, role)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}

	h.Logger.Info("user role changed",
		slog.String("user_id", u.ID.String()),
		slog.String("role", string(u.Role)),
		slog.String("admin_id", adminID(c)),
	)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    u,
	})
}

type setActiveReq struct {
	Active *bool `json:"active"`
}

func (h *AdminHandler) SetActive(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	var req setActiveReq
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		errs := FieldErrors{}
		errs.Add("active", "cannot be blank")
		return validationFail(c, errs)
	}

	u, err := h.Users.SetActive(c.UserContext(), id, *req.Active)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}

	h.Logger.Info("user active flag changed",
		slog.String("user_id", u.ID.String()),
		slog.Bool("active", u.IsActive),
		slog.String("admin_id", adminID(c)),
	)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    u,
	})
}

func adminID(c *fiber.Ctx) string {
	id, _ := middleware.CurrentUserID(c)
	return id.String()
}

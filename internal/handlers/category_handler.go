package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
)

type CategoryHandler struct {
	Jobs   *jobs.Manager
	Logger *slog.Logger
}

func NewCategoryHandler(mgr *jobs.Manager, logger *slog.Logger) *CategoryHandler {
	return &CategoryHandler{Jobs: mgr, Logger: logger}
}

// GetCategories lists every job category with its number of open jobs.
func (h *CategoryHandler) GetCategories(c *fiber.Ctx) error {
	counts, err := h.Jobs.CategoryCounts(c.UserContext())
	if err != nil {
		return respondError(c, h.Logger, err, "Failed to load categories")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    counts,
	})
}

package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/session"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/storage"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
)

type FieldErrors map[string][]string

func (e FieldErrors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": msg,
	})
}

func validationFail(c *fiber.Ctx, errs map[string][]string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": "Validation failed",
		"errors":  errs,
	})
}

// respondError maps service errors onto the response envelope. Anything
// unrecognised is logged and answered with a generic 500 carrying fallback.
func respondError(c *fiber.Ctx, logger *slog.Logger, err error, fallback string) error {
	var ve *jobs.ValidationError
	switch {
	case errors.As(err, &ve):
		return validationFail(c, ve.Fields)

	case errors.Is(err, users.ErrDuplicateIdentity):
		return fail(c, fiber.StatusConflict, "User with this email already exists")
	case errors.Is(err, users.ErrInvalidRole):
		return fail(c, fiber.StatusBadRequest, "Invalid role")
	case errors.Is(err, users.ErrUserNotFound):
		return fail(c, fiber.StatusNotFound, "User not found")

	case errors.Is(err, session.ErrInvalidCredentials):
		return fail(c, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, session.ErrAccountDisabled):
		return fail(c, fiber.StatusUnauthorized, "Account is disabled")
	case errors.Is(err, session.ErrInvalidToken):
		return fail(c, fiber.StatusUnauthorized, "Invalid token.")

	case errors.Is(err, jobs.ErrNotFound):
		return fail(c, fiber.StatusNotFound, "Job not found")
	case errors.Is(err, jobs.ErrNotAcceptable):
		return fail(c, fiber.StatusBadRequest, "Job is no longer available")
	case errors.Is(err, jobs.ErrForbidden):
		return fail(c, fiber.StatusForbidden, "Not authorized to update this job")
	case errors.Is(err, jobs.ErrInvalidStatus):
		return fail(c, fiber.StatusBadRequest, "Invalid status")

	case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrInvalidSize):
		return fail(c, fiber.StatusBadRequest, err.Error())
	}

	logger.Error(fallback,
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.Any("error", err),
	)
	return fail(c, fiber.StatusInternalServerError, fallback)
}

// ErrorHandler renders errors that escape a handler, such as fiber's own
// 404 and 405, in the same envelope.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return fail(c, fe.Code, fe.Message)
		}
		logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
		return fail(c, fiber.StatusInternalServerError, "Server error")
	}
}

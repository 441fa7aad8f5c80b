package handlers

import (
	"errors"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/session"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/users"
)

type AuthHandler struct {
	Users    *users.Store
	Sessions *session.Issuer
	Logger   *slog.Logger
}

func NewAuthHandler(store *users.Store, sessions *session.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{Users: store, Sessions: sessions, Logger: logger}
}

type SignupReq struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"` // client / technician, admin never from public signup
}

func (r *SignupReq) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = users.NormalizeEmail(r.Email)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
	if r.Role == "" {
		r.Role = string(models.RoleClient)
	}
}

func (r SignupReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.RuneLength(1, 50)),
		validation.Field(&r.LastName, validation.Required, validation.RuneLength(1, 50)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.RuneLength(6, 0).Error("must be at least 6 characters")),
		validation.Field(&r.Role, validation.In(string(models.RoleClient), string(models.RoleTechnician)).Error("must be client or technician")),
	)
}

type LoginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginReq) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type UpdateProfileReq struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
}

// fieldErrors flattens ozzo errors into the field -> messages shape.
func fieldErrors(err error) (FieldErrors, bool) {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return nil, false
	}
	out := FieldErrors{}
	for field, fe := range errs {
		out.Add(field, fe.Error())
	}
	return out, true
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req SignupReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.normalize()
	if err := req.Validate(); err != nil {
		if fe, ok := fieldErrors(err); ok {
			return validationFail(c, fe)
		}
		return respondError(c, h.Logger, err, "Server error during signup")
	}

	u, err := h.Users.Create(c.UserContext(), req.Email, req.Password, req.FirstName+" "+req.LastName, models.Role(req.Role))
	if err != nil {
		return respondError(c, h.Logger, err, "Server error during signup")
	}
	token, err := h.Sessions.Issue(u)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error during signup")
	}

	h.Logger.Info("user signed up", slog.String("user_id", u.ID.String()), slog.String("role", string(u.Role)))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully",
		"token":   token,
		"user":    u,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	req.Email = users.NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		if fe, ok := fieldErrors(err); ok {
			return validationFail(c, fe)
		}
		return respondError(c, h.Logger, err, "Server error during login")
	}

	token, u, err := h.Sessions.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error during login")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user":    u,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.Sessions.Revoke(c.UserContext(), middleware.CurrentToken(c)); err != nil {
		return respondError(c, h.Logger, err, "Server error during logout")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	u := middleware.CurrentUser(c)
	if u == nil {
		return fail(c, fiber.StatusNotFound, "User not found")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    u,
	})
}

// UpdateProfile renames the caller only when both name parts are given, the
// same way signup builds the display name.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}

	upd := users.ProfileUpdate{Phone: req.Phone, Address: req.Address}
	first, last := strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName)
	if first != "" && last != "" {
		name := first + " " + last
		upd.Name = &name
	}
	if req.Phone != nil && len(strings.TrimSpace(*req.Phone)) > 30 {
		errs := FieldErrors{}
		errs.Add("phone", "must be at most 30 characters")
		return validationFail(c, errs)
	}

	u, err := h.Users.UpdateProfile(c.UserContext(), uid, upd)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
		"user":    u,
	})
}

package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/middleware"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/jobs"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/services/storage"
)

type JobHandler struct {
	Jobs    *jobs.Manager
	Storage storage.PhotoStorage
	Logger  *slog.Logger
}

func NewJobHandler(mgr *jobs.Manager, photos storage.PhotoStorage, logger *slog.Logger) *JobHandler {
	return &JobHandler{Jobs: mgr, Storage: photos, Logger: logger}
}

type CreateJobReq struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Category          string   `json:"category"`
	Urgency           string   `json:"urgency"`
	Address           string   `json:"address"`
	ZipCode           string   `json:"zipCode"`
	PreferredDate     string   `json:"preferredDate"`
	EstimatedDuration *int     `json:"estimatedDuration"`
	MaxBudget         *float64 `json:"maxBudget"`
	Photos            []string `json:"photos"`
	Notes             string   `json:"notes"`
}

type UpdateStatusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// parseDate accepts RFC 3339 timestamps and plain calendar dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func actorFrom(c *fiber.Ctx) (jobs.Actor, bool) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return jobs.Actor{}, false
	}
	return jobs.Actor{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, true
}

func (h *JobHandler) jobID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params("id"))
	return id, err == nil
}

func (h *JobHandler) list(c *fiber.Ctx, f jobs.Filter) error {
	out, err := h.Jobs.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	if out == nil {
		out = []models.Job{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"jobs":    out,
		"total":   len(out),
	})
}

// List returns all jobs, optionally filtered by status, category, zipCode
// and urgency query parameters.
func (h *JobHandler) List(c *fiber.Ctx) error {
	return h.list(c, jobs.Filter{
		Status:   models.JobStatus(strings.ToLower(c.Query("status"))),
		Category: models.JobCategory(strings.ToLower(c.Query("category"))),
		ZipCode:  c.Query("zipCode"),
		Urgency:  models.JobUrgency(strings.ToLower(c.Query("urgency"))),
	})
}

func (h *JobHandler) MyRequests(c *fiber.Ctx) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}
	return h.list(c, jobs.Filter{ClientID: &uid})
}

func (h *JobHandler) MyJobs(c *fiber.Ctx) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}
	return h.list(c, jobs.Filter{TechnicianID: &uid})
}

func (h *JobHandler) Create(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}

	var req CreateJobReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	preferred, dateOK := parseDate(req.PreferredDate)

	job, err := h.Jobs.Create(c.UserContext(), jobs.CreateInput{
		Title:             req.Title,
		Description:       req.Description,
		Category:          models.JobCategory(req.Category),
		Urgency:           models.JobUrgency(req.Urgency),
		Address:           req.Address,
		ZipCode:           req.ZipCode,
		PreferredDate:     preferred,
		EstimatedDuration: req.EstimatedDuration,
		MaxBudget:         req.MaxBudget,
		Photos:            req.Photos,
		Notes:             strings.TrimSpace(req.Notes),
	}, actor)
	if err != nil {
		var ve *jobs.ValidationError
		if !dateOK && errors.As(err, &ve) {
			ve.Fields["preferredDate"] = []string{"must be a valid date"}
		}
		return respondError(c, h.Logger, err, "Server error during job creation")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Job created successfully",
		"job":     job,
	})
}

func (h *JobHandler) Get(c *fiber.Ctx) error {
	id, ok := h.jobID(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}
	job, err := h.Jobs.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"job":     job,
	})
}

func (h *JobHandler) Accept(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}
	id, ok := h.jobID(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}

	job, err := h.Jobs.Accept(c.UserContext(), id, actor)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job accepted successfully",
		"job":     job,
	})
}

func (h *JobHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}
	id, ok := h.jobID(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}

	var req UpdateStatusReq
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	status := models.JobStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	job, err := h.Jobs.SetStatus(c.UserContext(), id, status, actor, strings.TrimSpace(req.Notes))
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Job updated successfully",
		"job":     job,
	})
}

// UploadPhoto stores the multipart "photo" file and attaches its URL to the
// job. The permission check runs before anything is written.
func (h *JobHandler) UploadPhoto(c *fiber.Ctx) error {
	actor, ok := actorFrom(c)
	if !ok {
		return fail(c, fiber.StatusUnauthorized, "Access denied. No token provided.")
	}
	id, ok := h.jobID(c)
	if !ok {
		return fail(c, fiber.StatusNotFound, "Job not found")
	}

	job, err := h.Jobs.Get(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.Logger, err, "Server error")
	}
	if !jobs.CanModify(job, actor.ID, actor.Role) {
		return respondError(c, h.Logger, jobs.ErrForbidden, "Server error")
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Photo file not found")
	}

	url, err := h.Storage.Save(c.UserContext(), file, "job_"+id.String())
	if err != nil {
		return respondError(c, h.Logger, err, "Failed to store photo")
	}

	job, err = h.Jobs.AttachPhoto(c.UserContext(), id, actor, url)
	if err != nil {
		if delErr := h.Storage.Delete(c.UserContext(), url); delErr != nil {
			h.Logger.Warn("remove unattached photo", slog.String("url", url), slog.Any("error", delErr))
		}
		return respondError(c, h.Logger, err, "Server error")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"url":     url,
		"job":     job,
	})
}

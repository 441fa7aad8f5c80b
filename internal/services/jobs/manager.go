package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

var (
	ErrNotFound      = errors.New("job not found")
	ErrNotAcceptable = errors.New("job is no longer available")
	ErrForbidden     = errors.New("not authorized to update this job")
	ErrInvalidStatus = errors.New("invalid status")
)

// Event names published when a job changes.
const (
	EventCreated       = "job_created"
	EventAccepted      = "job_accepted"
	EventStatusChanged = "job_status_changed"
	EventPhotoAdded    = "job_photo_added"
)

// Notifier is told about every job change after it has been persisted.
type Notifier interface {
	JobChanged(ctx context.Context, event string, job *models.Job)
}

// Actor identifies who performs an operation, captured from the session.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  models.Role
}

type Filter struct {
	Status       models.JobStatus
	Category     models.JobCategory
	ZipCode      string
	Urgency      models.JobUrgency
	ClientID     *uuid.UUID
	TechnicianID *uuid.UUID
}

type Manager struct {
	DB       *gorm.DB
	Notifier Notifier
	Logger   *slog.Logger

	now func() time.Time
}

func NewManager(db *gorm.DB, notifier Notifier, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{DB: db, Notifier: notifier, Logger: logger, now: time.Now}
}

// Create validates in and stores a new pending job owned by owner. The
// owner's name and email are copied onto the job and never refreshed.
func (m *Manager) Create(ctx context.Context, in CreateInput, owner Actor) (*models.Job, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	job := models.Job{
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Urgency:           in.Urgency,
		Status:            models.JobStatusPending,
		ClientID:          owner.ID,
		ClientName:        owner.Name,
		ClientEmail:       owner.Email,
		Address:           in.Address,
		ZipCode:           in.ZipCode,
		PreferredDate:     in.PreferredDate,
		EstimatedDuration: *in.EstimatedDuration,
		MaxBudget:         *in.MaxBudget,
		Photos:            append([]string{}, in.Photos...),
		Notes:             in.Notes,
	}
	if err := m.DB.WithContext(ctx).Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	m.Logger.Info("job created",
		slog.String("job_id", job.ID.String()),
		slog.String("client_id", owner.ID.String()),
		slog.String("title", job.Title),
	)
	m.notify(ctx, EventCreated, &job)
	return &job, nil
}

// Accept binds the technician to a pending job. The update is conditioned on
// the job still being pending, so of several concurrent callers exactly one
// wins and the rest get ErrNotAcceptable.
func (m *Manager) Accept(ctx context.Context, jobID uuid.UUID, tech Actor) (*models.Job, error) {
	now := m.now()
	res := m.DB.WithContext(ctx).
		Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, models.JobStatusPending).
		Updates(map[string]interface{}{
			"status":           models.JobStatusAssigned,
			"technician_id":    tech.ID,
			"technician_name":  tech.Name,
			"technician_email": tech.Email,
			"accepted_at":      now,
			"updated_at":       now,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("accept job: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// either missing or somebody else got there first
		if _, err := m.Get(ctx, jobID); err != nil {
			return nil, err
		}
		return nil, ErrNotAcceptable
	}

	job, err := m.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	m.Logger.Info("job accepted",
		slog.String("job_id", job.ID.String()),
		slog.String("technician_id", tech.ID.String()),
	)
	m.notify(ctx, EventAccepted, job)
	return job, nil
}

// SetStatus moves a job to any recognised status on behalf of an actor
// allowed by CanModify. Notes replace the previous notes when non-empty.
func (m *Manager) SetStatus(ctx context.Context, jobID uuid.UUID, status models.JobStatus, actor Actor, notes string) (*models.Job, error) {
	job, err := m.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !CanModify(job, actor.ID, actor.Role) {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	// TODO: enforce the transition graph once product decides whether
	// completed/cancelled jobs may be reopened.
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": m.now(),
	}
	if notes != "" {
		updates["notes"] = notes
	}
	if status == models.JobStatusCompleted {
		updates["completed_at"] = m.now()
	}

	if err := m.DB.WithContext(ctx).Model(&models.Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update job status: %w", err)
	}

	job, err = m.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	m.Logger.Info("job status updated",
		slog.String("job_id", job.ID.String()),
		slog.String("status", string(status)),
		slog.String("actor_id", actor.ID.String()),
	)
	m.notify(ctx, EventStatusChanged, job)
	return job, nil
}

// AttachPhoto appends a photo URL to the job. The row is locked for the
// read-modify-write so concurrent uploads do not drop each other's photos.
func (m *Manager) AttachPhoto(ctx context.Context, jobID uuid.UUID, actor Actor, url string) (*models.Job, error) {
	var job models.Job
	err := m.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&job, "id = ?", jobID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load job: %w", err)
		}
		if !CanModify(&job, actor.ID, actor.Role) {
			return ErrForbidden
		}
		if !ValidPhotoURL(url) {
			ve := &ValidationError{}
			ve.Add("photos", "invalid image URL format: "+url)
			return ve
		}

		job.Photos = append(job.Photos, url)
		if err := tx.Model(&job).Update("photos", job.Photos).Error; err != nil {
			return fmt.Errorf("attach photo: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notify(ctx, EventPhotoAdded, &job)
	return &job, nil
}

func (m *Manager) Get(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := m.DB.WithContext(ctx).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// List returns the jobs matching f, newest first.
func (m *Manager) List(ctx context.Context, f Filter) ([]models.Job, error) {
	q := m.DB.WithContext(ctx).Model(&models.Job{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.ZipCode != "" {
		q = q.Where("zip_code = ?", f.ZipCode)
	}
	if f.Urgency != "" {
		q = q.Where("urgency = ?", f.Urgency)
	}
	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.TechnicianID != nil {
		q = q.Where("technician_id = ?", *f.TechnicianID)
	}

	var out []models.Job
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return out, nil
}

type CategoryCount struct {
	Category models.JobCategory `json:"category"`
	Pending  int64              `json:"pending"`
}

// CategoryCounts returns every category with the number of pending jobs in it.
func (m *Manager) CategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	var rows []CategoryCount
	err := m.DB.WithContext(ctx).
		Model(&models.Job{}).
		Select("category, COUNT(*) AS pending").
		Where("status = ?", models.JobStatusPending).
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count categories: %w", err)
	}

	byCat := make(map[models.JobCategory]int64, len(rows))
	for _, r := range rows {
		byCat[r.Category] = r.Pending
	}
	out := make([]CategoryCount, 0, len(models.JobCategories))
	for _, c := range models.JobCategories {
		out = append(out, CategoryCount{Category: c, Pending: byCat[c]})
	}
	return out, nil
}

func (m *Manager) notify(ctx context.Context, event string, job *models.Job) {
	if m.Notifier == nil {
		return
	}
	m.Notifier.JobChanged(ctx, event, job)
}

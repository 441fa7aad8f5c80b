// internal/models/job.go
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusAssigned   JobStatus = "assigned"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
)

var JobStatuses = []JobStatus{
	JobStatusPending,
	JobStatusAssigned,
	JobStatusInProgress,
	JobStatusCompleted,
	JobStatusCancelled,
}

func (s JobStatus) Valid() bool {
	for _, v := range JobStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type JobCategory string

const (
	CategoryHVAC       JobCategory = "hvac"
	CategoryPlumbing   JobCategory = "plumbing"
	CategoryElectrical JobCategory = "electrical"
	CategoryAppliance  JobCategory = "appliance"
	CategoryOther      JobCategory = "other"
)

var JobCategories = []JobCategory{
	CategoryHVAC,
	CategoryPlumbing,
	CategoryElectrical,
	CategoryAppliance,
	CategoryOther,
}

type JobUrgency string

const (
	UrgencyNormal    JobUrgency = "normal"
	UrgencyUrgent    JobUrgency = "urgent"
	UrgencyEmergency JobUrgency = "emergency"
)

const (
	DefaultEstimatedDuration = 60
	DefaultMaxBudget         = 0
)

type Job struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string      `gorm:"size:100;not null" json:"title"`
	Description string      `gorm:"size:1000;not null" json:"description"`
	Category    JobCategory `gorm:"type:varchar(20);not null;index:idx_jobs_status_category,priority:2" json:"category"`
	Urgency     JobUrgency  `gorm:"type:varchar(20);not null;default:normal" json:"urgency"`
	Status      JobStatus   `gorm:"type:varchar(20);not null;default:pending;index:idx_jobs_status_category,priority:1" json:"status"`

	// owner, captured at creation
	ClientID    uuid.UUID `gorm:"type:uuid;not null;index" json:"clientId"`
	ClientName  string    `gorm:"not null" json:"clientName"`
	ClientEmail string    `gorm:"not null" json:"clientEmail"`

	// filled on accept
	TechnicianID    *uuid.UUID `gorm:"type:uuid;index" json:"technicianId"`
	TechnicianName  string     `json:"technicianName,omitempty"`
	TechnicianEmail string     `json:"technicianEmail,omitempty"`

	Address string `gorm:"not null" json:"address"`
	ZipCode string `gorm:"type:varchar(10);not null;index" json:"zipCode"`

	PreferredDate     time.Time `gorm:"not null" json:"preferredDate"`
	EstimatedDuration int       `gorm:"not null;default:60" json:"estimatedDuration"`
	MaxBudget         float64   `gorm:"not null;default:0" json:"maxBudget"`

	Photos datatypes.JSONSlice[string] `json:"photos"`

	AcceptedAt  *time.Time `json:"acceptedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Notes       string     `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Photos == nil {
		j.Photos = datatypes.JSONSlice[string]{}
	}
	return nil
}

// DaysOld is the number of whole days since the job was created.
func (j *Job) DaysOld(now time.Time) int {
	if j.CreatedAt.IsZero() || now.Before(j.CreatedAt) {
		return 0
	}
	return int(now.Sub(j.CreatedAt).Hours() / 24)
}

// MarshalJSON adds the computed daysOld field.
func (j Job) MarshalJSON() ([]byte, error) {
	type plain Job
	return json.Marshal(struct {
		plain
		DaysOld int `json:"daysOld"`
	}{plain(j), j.DaysOld(time.Now())})
}

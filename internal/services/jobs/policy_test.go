package jobs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

func TestCanModify(t *testing.T) {
	client := uuid.New()
	tech := uuid.New()
	stranger := uuid.New()

	pending := &models.Job{ClientID: client, Status: models.JobStatusPending}
	assigned := &models.Job{ClientID: client, TechnicianID: &tech, Status: models.JobStatusAssigned}

	tests := []struct {
		name  string
		job   *models.Job
		actor uuid.UUID
		role  models.Role
		want  bool
	}{
		{"owner of pending job", pending, client, models.RoleClient, true},
		{"owner of assigned job", assigned, client, models.RoleClient, true},
		{"bound technician", assigned, tech, models.RoleTechnician, true},
		{"technician before binding", pending, tech, models.RoleTechnician, false},
		{"admin on pending job", pending, stranger, models.RoleAdmin, true},
		{"admin on assigned job", assigned, stranger, models.RoleAdmin, true},
		{"other client", assigned, stranger, models.RoleClient, false},
		{"other technician", assigned, stranger, models.RoleTechnician, false},
		{"unknown role", assigned, stranger, models.Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanModify(tt.job, tt.actor, tt.role))
		})
	}
}

func TestCanAccept(t *testing.T) {
	for _, s := range models.JobStatuses {
		t.Run(string(s), func(t *testing.T) {
			job := &models.Job{Status: s}
			assert.Equal(t, s == models.JobStatusPending, CanAccept(job))
		})
	}
}

package jobs

import (
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

// CanModify reports whether the actor may change job: any admin, the owning
// client, or the technician bound to it.
func CanModify(job *models.Job, actorID uuid.UUID, actorRole models.Role) bool {
	if actorRole == models.RoleAdmin {
		return true
	}
	if job.ClientID == actorID {
		return true
	}
	if job.TechnicianID != nil && *job.TechnicianID == actorID {
		return true
	}
	return false
}

func CanAccept(job *models.Job) bool {
	return job.Status == models.JobStatusPending
}

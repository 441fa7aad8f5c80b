// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/db"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
	"github.com/Windi-Fikriyansyah/homeguard_api/internal/utils"
)

func init() {
	// full-cost bcrypt makes the suite crawl
	utils.BcryptCost = 4
}

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Connect("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// CreateUser inserts a user directly, bypassing signup validation.
func CreateUser(t *testing.T, gdb *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	u := &models.User{
		Name:     "User " + email,
		Email:    email,
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	if err := gdb.WithContext(context.Background()).Create(u).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return u
}

// CreateJob inserts a pending job owned by client.
func CreateJob(t *testing.T, gdb *gorm.DB, client *models.User, title string) *models.Job {
	t.Helper()

	j := &models.Job{
		Title:             title,
		Description:       "Something in the house is broken",
		Category:          models.CategoryPlumbing,
		Urgency:           models.UrgencyNormal,
		Status:            models.JobStatusPending,
		ClientID:          client.ID,
		ClientName:        client.Name,
		ClientEmail:       client.Email,
		Address:           "123 Main Street",
		ZipCode:           "12345",
		PreferredDate:     time.Now().Add(24 * time.Hour),
		EstimatedDuration: models.DefaultEstimatedDuration,
	}
	if err := gdb.Create(j).Error; err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	return j
}

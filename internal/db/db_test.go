package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/homeguard_api/internal/models"
)

func TestConnectSQLiteAndMigrate(t *testing.T) {
	gdb, err := Connect("sqlite", "file::memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(gdb))

	assert.True(t, gdb.Migrator().HasTable(&models.User{}))
	assert.True(t, gdb.Migrator().HasTable(&models.Job{}))
	assert.True(t, gdb.Migrator().HasIndex(&models.Job{}, "idx_jobs_status_category"))
}

func TestConnectUnsupportedDriver(t *testing.T) {
	_, err := Connect("mongodb", "mongodb://localhost")
	assert.ErrorContains(t, err, "unsupported DB_DRIVER")
}

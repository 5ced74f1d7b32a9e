package main

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"resumeBuilder/internal/auth"
	"resumeBuilder/internal/database"
)

func TestProvisionUser(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	created, err := provisionUser(db, "admin", "first-password", false)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = provisionUser(db, "admin", "second-password", false)
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, db.Model(&database.User{}).Where("username = ?", "admin").Update("must_change_password", false).Error)

	created, err = provisionUser(db, "admin", "second-password", true)
	require.NoError(t, err)
	assert.False(t, created)

	var user database.User
	require.NoError(t, db.Where("username = ?", "admin").First(&user).Error)
	assert.True(t, user.MustChangePassword)
	assert.True(t, auth.CheckPasswordHash("second-password", user.PasswordHash))
}

func TestLoadDatabaseConfig(t *testing.T) {
	t.Setenv("DATABASE_HOST", "")
	t.Setenv("DATABASE_PORT", "")
	t.Setenv("POSTGRES_DB", "resumes")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("DATABASE_SSLMODE", "")

	cfg, err := loadDatabaseConfig("", 0, "", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "resumes", cfg.Name)
	assert.Equal(t, "disable", cfg.SSLMode)

	t.Setenv("POSTGRES_PASSWORD", "")
	t.Setenv("DB_PASSWORD", "")
	_, err = loadDatabaseConfig("db", 5433, "", "", "", "")
	assert.ErrorContains(t, err, "password")
}

func TestGenerateRandomPassword(t *testing.T) {
	a, err := generateRandomPassword(24)
	require.NoError(t, err)
	b, err := generateRandomPassword(0)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

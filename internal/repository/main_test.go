package repository

import (
	"os"
	"testing"

	"recipeexchange/internal/database"
	"recipeexchange/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	os.Exit(m.Run())
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedUser(t *testing.T, db *gorm.DB, id, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:             id,
		Username:       username,
		Email:          username + "@example.com",
		PasswordHash:   "hash",
		EmailConfirmed: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedRecipe(t *testing.T, db *gorm.DB, id, authorID string) *models.Recipe {
	t.Helper()
	recipe := &models.Recipe{
		ID:           id,
		Title:        "Recipe " + id,
		Ingredients:  []models.Ingredient{{Name: "salt", Amount: "1", Unit: "tsp"}},
		Instructions: []string{"season"},
		Servings:     1,
		Difficulty:   models.DifficultyEasy,
		Category:     models.CategoryOther,
		Tags:         []string{},
		AuthorID:     authorID,
	}
	require.NoError(t, db.Create(recipe).Error)
	return recipe
}

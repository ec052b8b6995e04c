package repository

import (
	"context"
	"testing"
	"time"

	"recipebox/internal/database"
	"recipebox/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestDB returns a migrated in-memory SQLite database private to the test.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "digest"}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func createRecipe(t *testing.T, repo RecipeRepository, author uint, title string, offset time.Duration, tags ...string) *models.Recipe {
	t.Helper()
	at := baseTime.Add(offset)
	recipe := &models.Recipe{
		Title:       title,
		UserID:      author,
		Ingredients: []string{"flour", "water"},
		Tags:        tags,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(t, repo.Create(context.Background(), recipe))
	return recipe
}

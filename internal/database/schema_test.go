package database

import (
	"context"
	"testing"

	"recipebox/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesRelationTables(t *testing.T) {
	var likes, tags bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.RecipeLike:
			likes = true
		case *models.RecipeTag:
			tags = true
		}
	}
	assert.True(t, likes, "PersistentModels should include RecipeLike")
	assert.True(t, tags, "PersistentModels should include RecipeTag")
}

func TestGetSchemaStatus(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	ctx := context.Background()

	status, err := GetSchemaStatus(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", status.Driver)
	assert.Zero(t, status.Missing)

	tables := make([]string, 0, len(status.Tables))
	for _, ts := range status.Tables {
		tables = append(tables, ts.Table)
	}
	assert.Equal(t, []string{"users", "recipes", "recipe_likes", "recipe_tags"}, tables)

	require.NoError(t, db.Migrator().DropTable(&models.RecipeTag{}))
	status, err = GetSchemaStatus(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Missing)
	assert.False(t, status.Tables[3].Exists)
}

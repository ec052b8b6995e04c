package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recipebox/internal/middleware"
)

const (
	RecipeKeyPrefix          = "recipe:%d"
	RecipeTombstoneKeyPrefix = "recipe:%d:deleted"
	UserKeyPrefix            = "user:%d"
)

const (
	RecipeTTL = time.Minute
	UserTTL   = 5 * time.Minute
	// RecipeTombstoneTTL outlives any entry a racing reader could still write.
	RecipeTombstoneTTL = 2 * RecipeTTL
)

func RecipeKey(recipeID uint) string {
	return fmt.Sprintf(RecipeKeyPrefix, recipeID)
}

func RecipeTombstoneKey(recipeID uint) string {
	return fmt.Sprintf(RecipeTombstoneKeyPrefix, recipeID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateRecipe(ctx context.Context, recipeID uint) {
	Invalidate(ctx, RecipeKey(recipeID))
}

// MarkRecipeDeleted drops the cached recipe and leaves a tombstone so an entry
// written back by a reader that loaded the row before the delete is ignored.
func MarkRecipeDeleted(ctx context.Context, recipeID uint) {
	if client == nil {
		return
	}
	pipe := client.TxPipeline()
	pipe.Set(ctx, RecipeTombstoneKey(recipeID), 1, RecipeTombstoneTTL)
	pipe.Del(ctx, RecipeKey(recipeID))
	if _, err := pipe.Exec(ctx); err != nil {
		middleware.Logger.WarnContext(ctx, "cache tombstone failed",
			slog.Uint64("recipe_id", uint64(recipeID)),
			slog.String("error", err.Error()),
		)
	}
}

// IsRecipeDeleted reports whether a tombstone exists for recipeID. Redis
// errors read as false so lookups fall through to the database.
func IsRecipeDeleted(ctx context.Context, recipeID uint) bool {
	if client == nil {
		return false
	}
	n, err := client.Exists(ctx, RecipeTombstoneKey(recipeID)).Result()
	return err == nil && n > 0
}

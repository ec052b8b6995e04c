package service

import (
	"context"
	"time"

	"recipebox/internal/models"
	"recipebox/internal/observability"
	"recipebox/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

type LikeService struct {
	recipes repository.RecipeRepository
	now     func() time.Time
}

// NewLikeService builds the service. now defaults to time.Now.
func NewLikeService(recipes repository.RecipeRepository, now func() time.Time) *LikeService {
	if now == nil {
		now = time.Now
	}
	return &LikeService{recipes: recipes, now: now}
}

// Like adds userID to the recipe's likes and refreshes updatedAt when the
// set changed. Repeating it changes nothing.
// It returns nil, nil when the recipe does not exist.
func (s *LikeService) Like(ctx context.Context, recipeID, userID uint) (*models.Recipe, error) {
	return s.toggle(ctx, "like", recipeID, userID, s.recipes.AddLike)
}

// Unlike removes userID from the recipe's likes; removing a non-member is a
// no-op and keeps updatedAt.
// It returns nil, nil when the recipe does not exist.
func (s *LikeService) Unlike(ctx context.Context, recipeID, userID uint) (*models.Recipe, error) {
	return s.toggle(ctx, "unlike", recipeID, userID, s.recipes.RemoveLike)
}

func (s *LikeService) toggle(
	ctx context.Context,
	action string,
	recipeID, userID uint,
	apply func(context.Context, uint, uint, time.Time) (*models.Recipe, error),
) (recipe *models.Recipe, err error) {
	ctx, span := observability.StartSpan(ctx, "LikeService."+action,
		attribute.Int64("recipe.id", int64(recipeID)),
		attribute.Int64("user.id", int64(userID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	recipe, err = apply(ctx, recipeID, userID, s.now().UTC().Truncate(time.Microsecond))
	switch {
	case err != nil:
		observability.LikeOperations.WithLabelValues(action, "error").Inc()
		return nil, err
	case recipe == nil:
		observability.LikeOperations.WithLabelValues(action, "not_found").Inc()
		return nil, nil
	}

	observability.LikeOperations.WithLabelValues(action, "ok").Inc()
	span.SetAttributes(attribute.Int("recipe.likes_count", recipe.LikesCount()))
	return recipe, nil
}

// IsLikedBy reports whether userID is in recipe's like set. It does not touch storage.
func (s *LikeService) IsLikedBy(recipe *models.Recipe, userID uint) bool {
	if recipe == nil || userID == 0 {
		return false
	}
	for _, id := range recipe.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

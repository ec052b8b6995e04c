package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"recipebox/internal/middleware"
	"recipebox/internal/models"
	"recipebox/internal/observability"
	"recipebox/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen    = 200
	maxContentsLen = 50000
	maxTagLen      = 64
	maxTags        = 20
)

// RecipeInput is the author-supplied content of a new recipe. There is no
// author field: the author is always the acting user.
type RecipeInput struct {
	Title       string
	Contents    string
	Ingredients []string
	ImageURL    string
	Tags        []string
}

// RecipeUpdate lists the fields an owner may change. Nil fields are left as they are.
type RecipeUpdate struct {
	Title       *string
	Contents    *string
	Ingredients *[]string
	ImageURL    *string
	Tags        *[]string
}

type RecipeService struct {
	recipes repository.RecipeRepository
	now     func() time.Time
}

// NewRecipeService builds the service. now defaults to time.Now.
func NewRecipeService(recipes repository.RecipeRepository, now func() time.Time) *RecipeService {
	if now == nil {
		now = time.Now
	}
	return &RecipeService{recipes: recipes, now: now}
}

// AuthorizeMutation fails with FORBIDDEN unless actingUserID authored recipe.
func (s *RecipeService) AuthorizeMutation(actingUserID uint, recipe *models.Recipe) error {
	if recipe == nil || actingUserID == 0 || recipe.UserID != actingUserID {
		return models.NewForbiddenError("Only the author can modify this recipe")
	}
	return nil
}

func (s *RecipeService) GetRecipe(ctx context.Context, id uint) (*models.Recipe, error) {
	if id == 0 {
		return nil, nil
	}
	return s.recipes.GetByID(ctx, id)
}

func (s *RecipeService) CreateRecipe(ctx context.Context, actingUserID uint, in RecipeInput) (recipe *models.Recipe, err error) {
	ctx, span := observability.StartSpan(ctx, "RecipeService.CreateRecipe")
	defer func() { observability.EndSpan(span, err) }()
	defer func() { trackMutation("create", err) }()

	if actingUserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}

	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if len(in.Contents) > maxContentsLen {
		return nil, models.NewValidationError(fmt.Sprintf("Contents too long (max %d characters)", maxContentsLen))
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	recipe = &models.Recipe{
		Title:       title,
		Contents:    in.Contents,
		Ingredients: normalizeIngredients(in.Ingredients),
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Tags:        tags,
		UserID:      actingUserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.recipes.Create(ctx, recipe); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("recipe.id", int64(recipe.ID)))
	return recipe, nil
}

// UpdateRecipe applies upd to the recipe when actingUserID is its author.
// It returns nil, nil when the recipe does not exist.
func (s *RecipeService) UpdateRecipe(ctx context.Context, actingUserID, recipeID uint, upd RecipeUpdate) (recipe *models.Recipe, err error) {
	ctx, span := observability.StartSpan(ctx, "RecipeService.UpdateRecipe",
		attribute.Int64("recipe.id", int64(recipeID)))
	defer func() { observability.EndSpan(span, err) }()
	defer func() { trackMutation("update", err) }()

	current, err := s.recipes.GetByID(ctx, recipeID)
	if err != nil || current == nil {
		return nil, err
	}

	if err := s.AuthorizeMutation(actingUserID, current); err != nil {
		middleware.Logger.WarnContext(ctx, "forbidden recipe mutation",
			slog.String("operation", "update"),
			slog.Uint64("recipe_id", uint64(recipeID)),
			slog.Uint64("acting_user_id", uint64(actingUserID)),
		)
		return nil, err
	}

	next := *current
	var columns []string
	if upd.Title != nil {
		title, err := normalizeTitle(*upd.Title)
		if err != nil {
			return nil, err
		}
		next.Title = title
		columns = append(columns, "title")
	}
	if upd.Contents != nil {
		if len(*upd.Contents) > maxContentsLen {
			return nil, models.NewValidationError(fmt.Sprintf("Contents too long (max %d characters)", maxContentsLen))
		}
		next.Contents = *upd.Contents
		columns = append(columns, "contents")
	}
	if upd.Ingredients != nil {
		next.Ingredients = normalizeIngredients(*upd.Ingredients)
		columns = append(columns, "ingredients")
	}
	if upd.ImageURL != nil {
		next.ImageURL = strings.TrimSpace(*upd.ImageURL)
		columns = append(columns, "image_url")
	}
	if upd.Tags != nil {
		tags, err := normalizeTags(*upd.Tags)
		if err != nil {
			return nil, err
		}
		next.Tags = tags
	}

	next.UpdatedAt = s.nextUpdatedAt(current.UpdatedAt)

	matched, err := s.recipes.Update(ctx, &next, columns, upd.Tags != nil)
	if err != nil {
		return nil, err
	}
	if !matched {
		// Deleted between the read and the write.
		return nil, nil
	}
	return s.recipes.GetByID(ctx, recipeID)
}

// DeleteRecipe deletes the recipe when actingUserID is its author and returns
// the number of recipes removed (0 or 1).
func (s *RecipeService) DeleteRecipe(ctx context.Context, actingUserID, recipeID uint) (deleted int64, err error) {
	ctx, span := observability.StartSpan(ctx, "RecipeService.DeleteRecipe",
		attribute.Int64("recipe.id", int64(recipeID)))
	defer func() { observability.EndSpan(span, err) }()
	defer func() { trackMutation("delete", err) }()

	if actingUserID == 0 || recipeID == 0 {
		return 0, nil
	}

	deleted, err = s.recipes.Delete(ctx, recipeID, actingUserID)
	if err != nil {
		return 0, err
	}
	span.SetAttributes(attribute.Int64("recipe.deleted", deleted))
	return deleted, nil
}

// timestamp is the service clock at the precision both SQL drivers store.
func (s *RecipeService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt is now, or just after prev when the clock has not moved past it.
func (s *RecipeService) nextUpdatedAt(prev time.Time) time.Time {
	now := s.timestamp()
	if !now.After(prev) {
		return prev.Add(time.Microsecond)
	}
	return now
}

func trackMutation(op string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if models.HasCode(err, models.CodeForbidden) {
			outcome = "forbidden"
		}
	}
	observability.RecipeMutations.WithLabelValues(op, outcome).Inc()
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return "", models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxTitleLen))
	}
	return title, nil
}

// normalizeTags trims tags and drops blanks and repeats, keeping first-seen order.
func normalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLen {
			return nil, models.NewValidationError(fmt.Sprintf("Tag too long (max %d characters)", maxTagLen))
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > maxTags {
		return nil, models.NewValidationError(fmt.Sprintf("Too many tags (max %d)", maxTags))
	}
	return out, nil
}

func normalizeIngredients(ingredients []string) []string {
	out := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		if ingredient = strings.TrimSpace(ingredient); ingredient != "" {
			out = append(out, ingredient)
		}
	}
	return out
}

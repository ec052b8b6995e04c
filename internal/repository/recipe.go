package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"recipebox/internal/cache"
	"recipebox/internal/models"
	"recipebox/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecipeQuery selects and orders recipes for List.
type RecipeQuery struct {
	Tag      string
	AuthorID uint
	// SortColumn must be one of the sortable columns; validated by List.
	SortColumn string
	Descending bool
}

// Sortable recipe columns by API name.
var SortableColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
}

// RecipeRepository defines persistence operations for recipes and their like
// and tag sets. Lookups and mutations of a missing recipe return nil (or a zero
// count) rather than an error.
type RecipeRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Recipe, error)
	List(ctx context.Context, q RecipeQuery) ([]*models.Recipe, error)
	Create(ctx context.Context, recipe *models.Recipe) error
	Update(ctx context.Context, recipe *models.Recipe, columns []string, replaceTags bool) (bool, error)
	Delete(ctx context.Context, id, ownerID uint) (int64, error)
	AddLike(ctx context.Context, recipeID, userID uint, at time.Time) (*models.Recipe, error)
	RemoveLike(ctx context.Context, recipeID, userID uint, at time.Time) (*models.Recipe, error)
}

type recipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository returns a new RecipeRepository implementation.
func NewRecipeRepository(db *gorm.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

var errRecipeNotFound = errors.New("recipe not found")

func (r *recipeRepository) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	if cache.IsRecipeDeleted(ctx, id) {
		cache.InvalidateRecipe(ctx, id)
		return nil, nil
	}

	var recipe models.Recipe
	err := cache.Aside(ctx, cache.RecipeKey(id), &recipe, cache.RecipeTTL, func() error {
		found, err := r.load(ctx, id)
		if err != nil {
			return err
		}
		if found == nil {
			return errRecipeNotFound
		}
		recipe = *found
		return nil
	})
	if errors.Is(err, errRecipeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// load reads a recipe and its relations straight from the database.
func (r *recipeRepository) load(ctx context.Context, id uint) (*models.Recipe, error) {
	defer observability.TrackQuery("select", "recipes")()

	var recipe models.Recipe
	if err := r.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}

	recipes := []*models.Recipe{&recipe}
	if err := loadRelations(ctx, r.db, recipes); err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) List(ctx context.Context, q RecipeQuery) ([]*models.Recipe, error) {
	defer observability.TrackQuery("select", "recipes")()

	if !isSortableColumn(q.SortColumn) {
		return nil, models.NewInvalidSortFieldError(q.SortColumn)
	}

	query := r.db.WithContext(ctx).Model(&models.Recipe{})
	if q.AuthorID != 0 {
		query = query.Where("user_id = ?", q.AuthorID)
	}
	if q.Tag != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM recipe_tags WHERE recipe_tags.recipe_id = recipes.id AND recipe_tags.tag = ?)",
			q.Tag,
		)
	}

	// id breaks ties in the same direction so equal sort keys keep a stable
	// order across calls.
	query = query.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: r.sortColumn(q.SortColumn), Desc: q.Descending},
		{Column: clause.Column{Name: "id"}, Desc: q.Descending},
	}})

	var recipes []*models.Recipe
	if err := query.Find(&recipes).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := loadRelations(ctx, r.db, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

// sortColumn compares titles bytewise. SQLite already uses BINARY; Postgres
// would otherwise follow the database locale.
func (r *recipeRepository) sortColumn(col string) clause.Column {
	if col == "title" && r.db.Dialector.Name() == "postgres" {
		return clause.Column{Name: `title COLLATE "C"`, Raw: true}
	}
	return clause.Column{Name: col}
}

// Create inserts recipe and its tag set in one transaction.
func (r *recipeRepository) Create(ctx context.Context, recipe *models.Recipe) error {
	defer observability.TrackQuery("insert", "recipes")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(recipe).Error; err != nil {
			return err
		}
		return insertTags(tx, recipe.ID, recipe.Tags)
	})
	if err != nil {
		return models.NewInternalError(err)
	}

	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}
	if recipe.Likes == nil {
		recipe.Likes = []uint{}
	}
	return nil
}

// Update writes the given columns (title, contents, ingredients, image_url)
// plus updated_at from recipe, on the row matching recipe.ID and owned by
// recipe.UserID. With replaceTags the tag set is replaced by recipe.Tags in the
// same transaction. It reports false when no row matched.
func (r *recipeRepository) Update(ctx context.Context, recipe *models.Recipe, columns []string, replaceTags bool) (bool, error) {
	defer observability.TrackQuery("update", "recipes")()

	values := map[string]interface{}{"updated_at": recipe.UpdatedAt}
	for _, col := range columns {
		switch col {
		case "title":
			values[col] = recipe.Title
		case "contents":
			values[col] = recipe.Contents
		case "image_url":
			values[col] = recipe.ImageURL
		case "ingredients":
			encoded, err := encodeIngredients(recipe.Ingredients)
			if err != nil {
				return false, models.NewInternalError(err)
			}
			values[col] = encoded
		default:
			return false, models.NewValidationError(fmt.Sprintf("Field %q cannot be updated", col))
		}
	}

	var matched bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Recipe{}).
			Where("id = ? AND user_id = ?", recipe.ID, recipe.UserID).
			Updates(values)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		matched = true

		if !replaceTags {
			return nil
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeTag{}).Error; err != nil {
			return err
		}
		return insertTags(tx, recipe.ID, recipe.Tags)
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}

	cache.InvalidateRecipe(ctx, recipe.ID)
	return matched, nil
}

// Delete removes the recipe only when ownerID is its author, together with its
// like and tag rows. The returned count is 0 or 1.
func (r *recipeRepository) Delete(ctx context.Context, id, ownerID uint) (int64, error) {
	defer observability.TrackQuery("delete", "recipes")()

	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.Recipe{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		if deleted == 0 {
			return nil
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.RecipeLike{}).Error; err != nil {
			return err
		}
		return tx.Where("recipe_id = ?", id).Delete(&models.RecipeTag{}).Error
	})
	if err != nil {
		return 0, models.NewInternalError(err)
	}

	if deleted > 0 {
		cache.MarkRecipeDeleted(ctx, id)
	}
	return deleted, nil
}

// addLikeSQL inserts the (recipe, user) pair only when both rows exist; the
// composite primary key turns a repeat into a no-op.
const addLikeSQL = `INSERT INTO recipe_likes (recipe_id, user_id, created_at)
SELECT recipes.id, users.id, CURRENT_TIMESTAMP FROM recipes, users
WHERE recipes.id = ? AND users.id = ?
ON CONFLICT (recipe_id, user_id) DO NOTHING`

// AddLike adds userID to the recipe's like set and returns the fresh recipe,
// or nil when the recipe does not exist. A new membership stamps updated_at
// with at in the same transaction; a repeat leaves the row untouched.
func (r *recipeRepository) AddLike(ctx context.Context, recipeID, userID uint, at time.Time) (*models.Recipe, error) {
	done := observability.TrackQuery("insert", "recipe_likes")
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(addLikeSQL, recipeID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		return touchUpdatedAt(tx, recipeID, at)
	})
	done()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateRecipe(ctx, recipeID)
	return r.load(ctx, recipeID)
}

// RemoveLike removes userID from the recipe's like set and returns the fresh
// recipe, or nil when the recipe does not exist. Only an actual removal
// stamps updated_at.
func (r *recipeRepository) RemoveLike(ctx context.Context, recipeID, userID uint, at time.Time) (*models.Recipe, error) {
	done := observability.TrackQuery("delete", "recipe_likes")
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("recipe_id = ? AND user_id = ?", recipeID, userID).Delete(&models.RecipeLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return nil
		}
		return touchUpdatedAt(tx, recipeID, at)
	})
	done()
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	cache.InvalidateRecipe(ctx, recipeID)
	return r.load(ctx, recipeID)
}

// touchUpdatedAt sets updated_at to at, or one microsecond past the stored
// value when at does not move it forward.
func touchUpdatedAt(tx *gorm.DB, recipeID uint, at time.Time) error {
	var current models.Recipe
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "updated_at").
		First(&current, recipeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	next := at.UTC().Truncate(time.Microsecond)
	if !next.After(current.UpdatedAt) {
		next = current.UpdatedAt.Add(time.Microsecond)
	}
	return tx.Model(&models.Recipe{}).Where("id = ?", recipeID).Update("updated_at", next).Error
}

// encodeIngredients matches the column's JSON serializer; map updates bypass it.
func encodeIngredients(ingredients []string) (string, error) {
	if ingredients == nil {
		ingredients = []string{}
	}
	b, err := json.Marshal(ingredients)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func insertTags(tx *gorm.DB, recipeID uint, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.RecipeTag, 0, len(tags))
	for _, tag := range tags {
		rows = append(rows, models.RecipeTag{RecipeID: recipeID, Tag: tag})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

// loadRelations fills Likes and Tags for recipes with one query per relation.
func loadRelations(ctx context.Context, db *gorm.DB, recipes []*models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(recipes))
	byID := make(map[uint]*models.Recipe, len(recipes))
	for _, recipe := range recipes {
		recipe.Likes = []uint{}
		recipe.Tags = []string{}
		ids = append(ids, recipe.ID)
		byID[recipe.ID] = recipe
	}

	var likes []models.RecipeLike
	if err := db.WithContext(ctx).
		Where("recipe_id IN ?", ids).
		Order("recipe_id, user_id").
		Find(&likes).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, like := range likes {
		if recipe := byID[like.RecipeID]; recipe != nil {
			recipe.Likes = append(recipe.Likes, like.UserID)
		}
	}

	var tags []models.RecipeTag
	if err := db.WithContext(ctx).
		Where("recipe_id IN ?", ids).
		Order("recipe_id, tag").
		Find(&tags).Error; err != nil {
		return models.NewInternalError(err)
	}
	for _, tag := range tags {
		if recipe := byID[tag.RecipeID]; recipe != nil {
			recipe.Tags = append(recipe.Tags, tag.Tag)
		}
	}
	return nil
}

func isSortableColumn(col string) bool {
	for _, c := range SortableColumns {
		if c == col {
			return true
		}
	}
	return false
}

package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"recipebox/internal/auth"
	"recipebox/internal/middleware"
	"recipebox/internal/models"
	"recipebox/internal/repository"

	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Options configure a Seeder.
type Options struct {
	// RandSeed makes runs reproducible; zero picks a fixed default.
	RandSeed   int64
	BcryptCost int
}

// Result counts what a run created.
type Result struct {
	Users   int
	Recipes int
	Likes   int
}

// Seeder writes fake users, recipes and likes through the repositories so
// seeded rows follow the same rules as API-created ones.
type Seeder struct {
	db      *gorm.DB
	users   repository.UserRepository
	recipes repository.RecipeRepository
	factory *Factory
	hasher  *auth.PasswordHasher
}

// NewSeeder creates a Seeder bound to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	seed := opts.RandSeed
	if seed == 0 {
		seed = 42
	}
	return &Seeder{
		db:      db,
		users:   repository.NewUserRepository(db),
		recipes: repository.NewRecipeRepository(db),
		factory: NewFactory(seed),
		hasher:  auth.NewPasswordHasher(opts.BcryptCost),
	}
}

// ClearAll removes every user, recipe, like and tag.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, model := range []interface{}{
		&models.RecipeLike{},
		&models.RecipeTag{},
		&models.Recipe{},
		&models.User{},
	} {
		if err := tx.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	middleware.Logger.InfoContext(ctx, "seed data cleared")
	return nil
}

// Run seeds the database according to p.
func (s *Seeder) Run(ctx context.Context, p Preset) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	// One digest for everyone; bcrypt per user would dominate the run.
	digest, err := s.hasher.Hash(DefaultPassword)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	users := make([]*models.User, 0, p.Users)
	for i := 1; i <= p.Users; i++ {
		user := s.factory.BuildUser(i, digest)
		if err := s.users.Create(ctx, user); err != nil {
			return res, fmt.Errorf("create user %s: %w", user.Username, err)
		}
		users = append(users, user)
		res.Users++
	}

	for _, author := range users {
		for i := 0; i < p.RecipesPerUser; i++ {
			recipe := s.factory.BuildRecipe(author, p.Tags, p.MaxDays)
			if err := s.recipes.Create(ctx, recipe); err != nil {
				return res, fmt.Errorf("create recipe: %w", err)
			}
			res.Recipes++

			likedAt := recipe.CreatedAt
			for _, liker := range s.factory.PickLikers(users, p.MaxLikesPerRecipe) {
				likedAt = likedAt.Add(time.Minute)
				if _, err := s.recipes.AddLike(ctx, recipe.ID, liker.ID, likedAt); err != nil {
					return res, fmt.Errorf("like recipe %d: %w", recipe.ID, err)
				}
				res.Likes++
			}
		}
	}

	middleware.Logger.InfoContext(ctx, "seed complete",
		slog.Int("users", res.Users),
		slog.Int("recipes", res.Recipes),
		slog.Int("likes", res.Likes),
	)
	return res, nil
}

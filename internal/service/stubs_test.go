package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"recipebox/internal/models"
	"recipebox/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, _ uint) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
	}
}

// recipeRepoStub is a stub for repository.RecipeRepository.
type recipeRepoStub struct {
	getByIDFn    func(context.Context, uint) (*models.Recipe, error)
	listFn       func(context.Context, repository.RecipeQuery) ([]*models.Recipe, error)
	createFn     func(context.Context, *models.Recipe) error
	updateFn     func(context.Context, *models.Recipe, []string, bool) (bool, error)
	deleteFn     func(context.Context, uint, uint) (int64, error)
	addLikeFn    func(context.Context, uint, uint, time.Time) (*models.Recipe, error)
	removeLikeFn func(context.Context, uint, uint, time.Time) (*models.Recipe, error)
}

func (s *recipeRepoStub) GetByID(ctx context.Context, id uint) (*models.Recipe, error) {
	return s.getByIDFn(ctx, id)
}
func (s *recipeRepoStub) List(ctx context.Context, q repository.RecipeQuery) ([]*models.Recipe, error) {
	return s.listFn(ctx, q)
}
func (s *recipeRepoStub) Create(ctx context.Context, recipe *models.Recipe) error {
	return s.createFn(ctx, recipe)
}
func (s *recipeRepoStub) Update(ctx context.Context, recipe *models.Recipe, columns []string, replaceTags bool) (bool, error) {
	return s.updateFn(ctx, recipe, columns, replaceTags)
}
func (s *recipeRepoStub) Delete(ctx context.Context, id, ownerID uint) (int64, error) {
	return s.deleteFn(ctx, id, ownerID)
}
func (s *recipeRepoStub) AddLike(ctx context.Context, recipeID, userID uint, at time.Time) (*models.Recipe, error) {
	return s.addLikeFn(ctx, recipeID, userID, at)
}
func (s *recipeRepoStub) RemoveLike(ctx context.Context, recipeID, userID uint, at time.Time) (*models.Recipe, error) {
	return s.removeLikeFn(ctx, recipeID, userID, at)
}

// failOnCall returns an error that fails the test if a repository method is reached.
func failOnCall(t *testing.T, name string) error {
	t.Helper()
	t.Errorf("unexpected repository call: %s", name)
	return errors.New("unexpected call")
}

func noopRecipeRepo() *recipeRepoStub {
	return &recipeRepoStub{
		getByIDFn:    func(_ context.Context, _ uint) (*models.Recipe, error) { return nil, nil },
		listFn:       func(_ context.Context, _ repository.RecipeQuery) ([]*models.Recipe, error) { return nil, nil },
		createFn:     func(_ context.Context, _ *models.Recipe) error { return nil },
		updateFn:     func(_ context.Context, _ *models.Recipe, _ []string, _ bool) (bool, error) { return true, nil },
		deleteFn:     func(_ context.Context, _, _ uint) (int64, error) { return 0, nil },
		addLikeFn:    func(_ context.Context, _, _ uint, _ time.Time) (*models.Recipe, error) { return nil, nil },
		removeLikeFn: func(_ context.Context, _, _ uint, _ time.Time) (*models.Recipe, error) { return nil, nil },
	}
}

// assertCode asserts that err is an AppError with the given code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func strPtr(s string) *string { return &s }

func slicePtr(s []string) *[]string { return &s }

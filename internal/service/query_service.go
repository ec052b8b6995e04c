package service

import (
	"context"

	"recipebox/internal/models"
	"recipebox/internal/observability"
	"recipebox/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// RecipeFilter narrows a listing. Author is a username.
type RecipeFilter struct {
	Tag    string
	Author string
}

// RecipeSort orders a listing. Empty fields take the defaults
// (createdAt, descending).
type RecipeSort struct {
	SortBy    string
	SortOrder string
}

const (
	defaultSortBy  = "createdAt"
	sortAscending  = "ascending"
	sortDescending = "descending"
)

type QueryService struct {
	recipes repository.RecipeRepository
	users   repository.UserRepository
}

func NewQueryService(recipes repository.RecipeRepository, users repository.UserRepository) *QueryService {
	return &QueryService{recipes: recipes, users: users}
}

// ListRecipes returns every recipe matching filter in the requested order.
// Recipes with equal sort keys are ordered by id.
func (s *QueryService) ListRecipes(ctx context.Context, filter RecipeFilter, sort RecipeSort) (recipes []*models.Recipe, err error) {
	ctx, span := observability.StartSpan(ctx, "QueryService.ListRecipes",
		attribute.String("filter.tag", filter.Tag),
		attribute.String("filter.author", filter.Author),
		attribute.String("sort.by", sort.SortBy),
		attribute.String("sort.order", sort.SortOrder),
	)
	defer func() { observability.EndSpan(span, err) }()

	q, err := buildQuery(sort)
	if err != nil {
		return nil, err
	}
	q.Tag = filter.Tag

	if filter.Author != "" {
		author, err := s.users.GetByUsername(ctx, filter.Author)
		if err != nil {
			return nil, err
		}
		if author == nil {
			return []*models.Recipe{}, nil
		}
		q.AuthorID = author.ID
	}

	recipes, err = s.recipes.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []*models.Recipe{}
	}
	span.SetAttributes(attribute.Int("result.count", len(recipes)))
	return recipes, nil
}

func buildQuery(sort RecipeSort) (repository.RecipeQuery, error) {
	sortBy := sort.SortBy
	if sortBy == "" {
		sortBy = defaultSortBy
	}
	column, ok := repository.SortableColumns[sortBy]
	if !ok {
		return repository.RecipeQuery{}, models.NewInvalidSortFieldError(sortBy)
	}

	var descending bool
	switch sort.SortOrder {
	case "", sortDescending:
		descending = true
	case sortAscending:
		descending = false
	default:
		return repository.RecipeQuery{}, models.NewInvalidSortFieldError(sort.SortOrder)
	}

	return repository.RecipeQuery{SortColumn: column, Descending: descending}, nil
}

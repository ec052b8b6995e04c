package server

import (
	"context"
	"time"

	"recipebox/internal/middleware"
	"recipebox/internal/models"
	"recipebox/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createRecipeRequest struct {
	Title       string   `json:"title"`
	Contents    string   `json:"contents"`
	Ingredients []string `json:"ingredients"`
	ImageURL    string   `json:"image_url"`
	Tags        []string `json:"tags"`
}

// updateRecipeRequest only carries the editable fields; author, id and
// timestamps in the body are ignored.
type updateRecipeRequest struct {
	Title       *string   `json:"title"`
	Contents    *string   `json:"contents"`
	Ingredients *[]string `json:"ingredients"`
	ImageURL    *string   `json:"image_url"`
	Tags        *[]string `json:"tags"`
}

// recipeResponse is the wire form of a recipe. Liked is only present for
// authenticated requests.
type recipeResponse struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Contents    string    `json:"contents"`
	Ingredients []string  `json:"ingredients"`
	ImageURL    string    `json:"image_url,omitempty"`
	Author      uint      `json:"author"`
	Tags        []string  `json:"tags"`
	Likes       []uint    `json:"likes"`
	LikesCount  int       `json:"likes_count"`
	Liked       *bool     `json:"liked,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s *Server) toResponse(r *models.Recipe, viewerID uint) recipeResponse {
	resp := recipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		Contents:    r.Contents,
		Ingredients: r.Ingredients,
		ImageURL:    r.ImageURL,
		Author:      r.UserID,
		Tags:        r.Tags,
		Likes:       r.Likes,
		LikesCount:  r.LikesCount(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []string{}
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.Likes == nil {
		resp.Likes = []uint{}
	}
	if viewerID != 0 {
		liked := s.likeService.IsLikedBy(r, viewerID)
		resp.Liked = &liked
	}
	return resp
}

// ListRecipes handles GET /api/v1/recipes
func (s *Server) ListRecipes(c *fiber.Ctx) error {
	filter := service.RecipeFilter{
		Tag:    c.Query("tag"),
		Author: c.Query("author"),
	}
	sort := service.RecipeSort{
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}

	recipes, err := s.queryService.ListRecipes(c.UserContext(), filter, sort)
	if err != nil {
		return respondError(c, err)
	}

	viewerID := middleware.UserID(c)
	out := make([]recipeResponse, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, s.toResponse(r, viewerID))
	}
	return c.JSON(out)
}

// GetRecipe handles GET /api/v1/recipes/:id
func (s *Server) GetRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := s.recipeService.GetRecipe(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if recipe == nil {
		return respondError(c, models.NewNotFoundError("Recipe", id))
	}

	return c.JSON(s.toResponse(recipe, middleware.UserID(c)))
}

// CreateRecipe handles POST /api/v1/recipes
func (s *Server) CreateRecipe(c *fiber.Ctx) error {
	userID := middleware.UserID(c)

	var req createRecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	recipe, err := s.recipeService.CreateRecipe(c.UserContext(), userID, service.RecipeInput{
		Title:       req.Title,
		Contents:    req.Contents,
		Ingredients: req.Ingredients,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.toResponse(recipe, userID))
}

// UpdateRecipe handles PATCH /api/v1/recipes/:id
func (s *Server) UpdateRecipe(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req updateRecipeRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	recipe, err := s.recipeService.UpdateRecipe(c.UserContext(), userID, id, service.RecipeUpdate{
		Title:       req.Title,
		Contents:    req.Contents,
		Ingredients: req.Ingredients,
		ImageURL:    req.ImageURL,
		Tags:        req.Tags,
	})
	if err != nil {
		return respondError(c, err)
	}
	if recipe == nil {
		return respondError(c, models.NewNotFoundError("Recipe", id))
	}

	return c.JSON(s.toResponse(recipe, userID))
}

// DeleteRecipe handles DELETE /api/v1/recipes/:id. Deleting a recipe the
// caller does not own, or one that is already gone, reports a zero count.
func (s *Server) DeleteRecipe(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	deleted, err := s.recipeService.DeleteRecipe(c.UserContext(), middleware.UserID(c), id)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"deletedCount": deleted})
}

// LikeRecipe handles POST /api/v1/recipes/:id/like
func (s *Server) LikeRecipe(c *fiber.Ctx) error {
	return s.toggleLike(c, s.likeService.Like)
}

// UnlikeRecipe handles DELETE /api/v1/recipes/:id/like
func (s *Server) UnlikeRecipe(c *fiber.Ctx) error {
	return s.toggleLike(c, s.likeService.Unlike)
}

func (s *Server) toggleLike(c *fiber.Ctx, apply func(ctx context.Context, recipeID, userID uint) (*models.Recipe, error)) error {
	userID := middleware.UserID(c)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	recipe, err := apply(c.UserContext(), id, userID)
	if err != nil {
		return respondError(c, err)
	}
	if recipe == nil {
		return respondError(c, models.NewNotFoundError("Recipe", id))
	}

	return c.JSON(s.toResponse(recipe, userID))
}

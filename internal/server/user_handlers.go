package server

import (
	"recipebox/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetUserInfo handles GET /api/v1/users/:id
func (s *Server) GetUserInfo(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	user, err := s.authService.GetUserInfo(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	if user == nil {
		return respondError(c, models.NewNotFoundError("User", id))
	}

	return c.JSON(fiber.Map{
		"id":       user.ID,
		"username": user.Username,
	})
}

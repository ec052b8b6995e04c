// Package middleware provides authentication, rate limiting, logging and tracing middleware for the API.
package middleware

import (
	"context"

	"recipebox/internal/auth"
	"recipebox/internal/models"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the Fiber locals key holding the authenticated user's id (uint).
const UserIDLocal = "userID"

// TokenVerifier verifies bearer tokens and returns the subject user id.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// AuthRequired enforces a valid bearer token on protected routes.
func AuthRequired(tv TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization header required"))
		}
		token, err := auth.ExtractBearer(header)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid authorization header format"))
		}

		userID, err := tv.Verify(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		setUser(c, userID)
		return c.Next()
	}
}

// OptionalAuth attaches the user id when a valid bearer token is present.
// Missing or invalid tokens are ignored so public routes stay public.
func OptionalAuth(tv TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return c.Next()
		}
		token, err := auth.ExtractBearer(header)
		if err != nil {
			return c.Next()
		}
		if userID, err := tv.Verify(token); err == nil {
			setUser(c, userID)
		}
		return c.Next()
	}
}

func setUser(c *fiber.Ctx, userID uint) {
	c.Locals(UserIDLocal, userID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, userID))
}

// UserID returns the authenticated user's id, or 0 when the request is anonymous.
func UserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals(UserIDLocal).(uint); ok {
		return uid
	}
	return 0
}

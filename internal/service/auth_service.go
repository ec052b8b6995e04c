// Package service holds the application's business rules: authentication,
// recipe ownership, listing and likes.
package service

import (
	"context"
	"log/slog"
	"sync"

	"recipebox/internal/middleware"
	"recipebox/internal/models"
	"recipebox/internal/observability"
	"recipebox/internal/repository"
	"recipebox/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) bool
}

// TokenIssuer issues bearer tokens for a user id.
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

type AuthService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(users repository.UserRepository, hasher PasswordHasher, tokens TokenIssuer) *AuthService {
	return &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a user storing only the password digest.
func (s *AuthService) Register(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Register")
	defer func() { observability.EndSpan(span, err) }()

	if err := validation.ValidateUsername(username); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	existing, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		observability.AuthEvents.WithLabelValues("register", "duplicate").Inc()
		return nil, models.NewDuplicateUsernameError(username)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{Username: username, Password: digest}
	if err := s.users.Create(ctx, user); err != nil {
		if models.HasCode(err, models.CodeDuplicateUsername) {
			observability.AuthEvents.WithLabelValues("register", "duplicate").Inc()
		}
		return nil, err
	}

	observability.AuthEvents.WithLabelValues("register", "success").Inc()
	span.SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	middleware.Logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.String("username", username),
	)
	return user, nil
}

// Login returns a token for valid credentials. Unknown users and wrong
// passwords fail with the same INVALID_CREDENTIALS error.
func (s *AuthService) Login(ctx context.Context, username, password string) (token string, err error) {
	ctx, span := observability.StartSpan(ctx, "AuthService.Login")
	defer func() { observability.EndSpan(span, err) }()

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if user == nil {
		// Spend the same hashing time as a real check.
		s.hasher.Verify(password, s.dummy())
		return "", s.loginFailed(ctx, username)
	}
	if !s.hasher.Verify(password, user.Password) {
		return "", s.loginFailed(ctx, username)
	}

	token, err = s.tokens.Issue(user.ID)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	observability.AuthEvents.WithLabelValues("login", "success").Inc()
	return token, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username string) error {
	observability.AuthEvents.WithLabelValues("login", "failure").Inc()
	middleware.Logger.WarnContext(ctx, "login failed", slog.String("username", username))
	return models.NewInvalidCredentialsError()
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyDigest, _ = s.hasher.Hash("recipebox-dummy-password")
	})
	return s.dummyDigest
}

// GetUserInfo returns the public profile of a user, or nil when absent.
func (s *AuthService) GetUserInfo(ctx context.Context, id uint) (*models.User, error) {
	if id == 0 {
		return nil, nil
	}
	return s.users.GetByID(ctx, id)
}

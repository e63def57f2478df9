package service

import (
	"context"
	"log/slog"

	"groupledger/internal/auth"
	"groupledger/internal/models"
)

// AuthService handles account registration and login, issuing JWTs for
// authenticated sessions.
type AuthService struct {
	authenticator auth.Authenticator
	tokens        *auth.JWTManager
}

// NewAuthService creates an auth service from an authenticator and a
// token manager.
func NewAuthService(authenticator auth.Authenticator, tokens *auth.JWTManager) *AuthService {
	return &AuthService{authenticator: authenticator, tokens: tokens}
}

// Register creates a new account and returns the user with a signed token.
func (s *AuthService) Register(ctx context.Context, email, displayName, password string) (*models.User, string, error) {
	slog.Info("Register request received", "email", email)

	user, err := s.authenticator.Register(ctx, email, displayName, password)
	if err != nil {
		slog.Error("Register failed", "email", email, "error", err)
		return nil, "", err
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		slog.Error("Register failed to issue token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	slog.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

// Login verifies credentials and returns the user with a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	slog.Info("Login request received", "email", email)

	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		slog.Warn("Login failed", "email", email)
		return nil, "", err
	}
	token, err := s.tokens.Generate(user)
	if err != nil {
		slog.Error("Login failed to issue token", "user_id", user.ID, "error", err)
		return nil, "", err
	}

	slog.Info("User logged in", "user_id", user.ID)
	return user, token, nil
}

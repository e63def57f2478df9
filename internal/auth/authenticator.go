package auth

import (
	"context"

	"groupledger/internal/models"
)

// Authenticator verifies user credentials and registers new accounts.
type Authenticator interface {
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
	ValidateCredential(credential string) error
}

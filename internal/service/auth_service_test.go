package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupledger/internal/auth"
	"groupledger/internal/storage/memory"
)

func newAuthService() *AuthService {
	store := memory.New()
	return NewAuthService(
		auth.NewPasswordAuthenticator(store),
		auth.NewJWTManager("test-secret", time.Hour),
	)
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	user, token, err := svc.Register(ctx, "alice@example.com", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in the clear")
	}

	tokens := auth.NewJWTManager("test-secret", time.Hour)
	claims, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("token validation failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != "alice@example.com" {
		t.Errorf("claims = %s/%s, want %s/alice@example.com", claims.UserID, claims.Email, user.ID)
	}

	loggedIn, _, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loggedIn.ID != user.ID {
		t.Errorf("login user = %s, want %s", loggedIn.ID, user.ID)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	if _, _, err := svc.Register(ctx, "alice@example.com", "Alice", "short"); !errors.Is(err, auth.ErrWeakPassword) {
		t.Errorf("weak password: got %v, want ErrWeakPassword", err)
	}
	if _, _, err := svc.Register(ctx, "alice@example.com", "Alice", "correct-horse"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, _, err := svc.Register(ctx, "alice@example.com", "Alice 2", "battery-staple"); !errors.Is(err, auth.ErrEmailExists) {
		t.Errorf("duplicate email: got %v, want ErrEmailExists", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newAuthService()

	if _, _, err := svc.Register(ctx, "alice@example.com", "Alice", "correct-horse"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, _, err := svc.Login(ctx, "alice@example.com", "wrong"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody@example.com", "correct-horse"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

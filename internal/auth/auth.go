// Package auth issues and resolves storefront sessions. Credentials live in
// PostgreSQL, sessions in Redis, and every state change is broadcast to the
// subscribers registered through OnAuthStateChange.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found or expired")
	ErrNotAuthenticated   = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient role")
	ErrProviderClosed     = errors.New("auth provider closed")
)

type Event string

const (
	EventSignedIn       Event = "SIGNED_IN"
	EventSignedOut      Event = "SIGNED_OUT"
	EventTokenRefreshed Event = "TOKEN_REFRESHED"
)

// Session is the credential material handed to the client. Token is opaque.
type Session struct {
	Token     string    `json:"access_token"`
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Credentials is the user table as seen by the provider.
type Credentials interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// RequireRole returns ErrForbidden unless profile carries role.
func RequireRole(profile *models.Profile, role models.Role) error {
	if profile == nil {
		return ErrNotAuthenticated
	}
	if profile.Role != role {
		return ErrForbidden
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

const usersEmailConstraint = "users_email_key"

// CreateUser stores a credential row. The on_user_created trigger creates the
// matching profile with role "user".
func CreateUser(ctx context.Context, db DBTX, email, passwordHash, name string) (*models.User, error) {
	user := &models.User{}

	query := `
		INSERT INTO users (id, email, password_hash, raw_name, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, email, password_hash, created_at`

	err := db.QueryRowContext(ctx, query, uuid.New(), normalizeEmail(email), passwordHash, name).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err, usersEmailConstraint) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUserByEmail(ctx context.Context, db DBTX, email string) (*models.User, error) {
	user := &models.User{}

	query := `
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = $1`

	err := db.QueryRowContext(ctx, query, normalizeEmail(email)).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

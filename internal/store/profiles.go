package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

func GetProfile(ctx context.Context, db DBTX, id uuid.UUID) (*models.Profile, error) {
	profile := &models.Profile{}
	var role string

	query := `
		SELECT id, name, email, role, created_at
		FROM profiles
		WHERE id = $1`

	err := db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&profile.Name,
		&profile.Email,
		&role,
		&profile.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	profile.Role = models.ParseRole(role)

	return profile, nil
}

// SetRoleByEmail is used by operators to promote or demote an account.
func SetRoleByEmail(ctx context.Context, db DBTX, email string, role models.Role) error {
	result, err := db.ExecContext(ctx,
		`UPDATE profiles SET role = $1 WHERE email = $2`,
		string(role), normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProfileNotFound
	}

	return nil
}

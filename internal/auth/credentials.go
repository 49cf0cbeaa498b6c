package auth

import (
	"context"
	"database/sql"

	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type pgCredentials struct {
	db *sql.DB
}

// NewPostgresCredentials reads and writes the users table.
func NewPostgresCredentials(db *sql.DB) Credentials {
	return &pgCredentials{db: db}
}

func (c *pgCredentials) CreateUser(ctx context.Context, email, passwordHash, name string) (*models.User, error) {
	return store.CreateUser(ctx, c.db, email, passwordHash, name)
}

func (c *pgCredentials) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return store.GetUserByEmail(ctx, c.db, email)
}

package cart

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository backs a Manager with the cart_items table.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	return store.ListCartItems(ctx, r.db, userID)
}

func (r *postgresRepository) Add(ctx context.Context, userID uuid.UUID, productID int64, quantity int) error {
	_, err := store.AddCartItem(ctx, r.db, userID, productID, quantity)
	return err
}

func (r *postgresRepository) SetQuantity(ctx context.Context, userID uuid.UUID, itemID int64, quantity int) error {
	return store.SetCartItemQuantity(ctx, r.db, userID, itemID, quantity)
}

func (r *postgresRepository) Remove(ctx context.Context, userID uuid.UUID, itemID int64) error {
	return store.RemoveCartItem(ctx, r.db, userID, itemID)
}

func (r *postgresRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	_, err := store.ClearCart(ctx, r.db, userID)
	return err
}

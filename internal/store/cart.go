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

const cartItemColumns = `
	ci.id, ci.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at,
	p.id, p.name, p.description, p.price, p.image_url, p.stock_quantity, p.category, p.is_deleted, p.created_at, p.updated_at`

func scanCartItem(row rowScanner, item *models.CartItem) error {
	p := &item.Product
	return row.Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.ImageURL,
		&p.StockQuantity,
		&p.Category,
		&p.IsDeleted,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

// ListCartItems returns the user's cart joined with current product data, in
// insertion order.
func ListCartItems(ctx context.Context, db DBTX, userID uuid.UUID) ([]models.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.id`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := scanCartItem(rows, &item); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// AddCartItem inserts the (user, product) line or adds quantity to the
// existing one in a single statement, so concurrent adds accumulate instead
// of overwriting each other. Soft-deleted products cannot be added, and the
// resulting line may not exceed the product's stock.
func AddCartItem(ctx context.Context, db DBTX, userID uuid.UUID, productID int64, quantity int) (int64, error) {
	var id int64

	query := `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		SELECT $1, p.id, $3, NOW(), NOW()
		FROM products p
		WHERE p.id = $2 AND NOT p.is_deleted AND p.stock_quantity >= $3
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity,
		              updated_at = NOW()
		WHERE cart_items.quantity::bigint + EXCLUDED.quantity <=
		      (SELECT stock_quantity FROM products WHERE id = EXCLUDED.product_id)
		RETURNING id`

	err := db.QueryRowContext(ctx, query, userID, productID, quantity).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, stockOrMissing(ctx, db, productID)
		}
		return 0, fmt.Errorf("add cart item: %w", err)
	}

	return id, nil
}

// stockOrMissing explains why a stock-guarded cart write touched no row.
func stockOrMissing(ctx context.Context, db DBTX, productID int64) error {
	if _, err := GetActiveProduct(ctx, db, productID); err != nil {
		return err
	}
	return database.ErrInsufficientStock
}

// SetCartItemQuantity replaces the quantity of one of the user's lines. The
// new quantity may not exceed the product's stock.
func SetCartItemQuantity(ctx context.Context, db DBTX, userID uuid.UUID, itemID int64, quantity int) error {
	result, err := db.ExecContext(ctx,
		`UPDATE cart_items ci
		 SET quantity = $1, updated_at = NOW()
		 FROM products p
		 WHERE ci.id = $2 AND ci.user_id = $3
		   AND p.id = ci.product_id
		   AND p.stock_quantity >= $1`,
		quantity, itemID, userID)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}

	err = expectOneRow(result, database.ErrCartItemNotFound)
	if !errors.Is(err, database.ErrCartItemNotFound) {
		return err
	}

	var productID int64
	err = db.QueryRowContext(ctx,
		`SELECT product_id FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID).Scan(&productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrCartItemNotFound
		}
		return fmt.Errorf("get cart item: %w", err)
	}

	return database.ErrInsufficientStock
}

func RemoveCartItem(ctx context.Context, db DBTX, userID uuid.UUID, itemID int64) error {
	result, err := db.ExecContext(ctx,
		`DELETE FROM cart_items WHERE id = $1 AND user_id = $2`,
		itemID, userID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}

	return expectOneRow(result, database.ErrCartItemNotFound)
}

// ClearCart deletes every line the user owns and reports how many went.
func ClearCart(ctx context.Context, db DBTX, userID uuid.UUID) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear cart: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return n, nil
}

func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notFound
	}

	return nil
}

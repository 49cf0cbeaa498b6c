package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
)

type ProductSort string

const (
	SortByName  ProductSort = "name"
	SortByPrice ProductSort = "price"
)

// ParseProductSort defaults to SortByName for unknown values.
func ParseProductSort(s string) ProductSort {
	if s == string(SortByPrice) {
		return SortByPrice
	}
	return SortByName
}

func (s ProductSort) orderBy() string {
	if s == SortByPrice {
		return "price ASC, id ASC"
	}
	return "name ASC, id ASC"
}

type ProductFilter struct {
	Category string
	Sort     ProductSort
}

const productColumns = `id, name, description, price, image_url, stock_quantity, category, is_deleted, created_at, updated_at`

func scanProduct(row rowScanner, product *models.Product) error {
	return row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.StockQuantity,
		&product.Category,
		&product.IsDeleted,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}

func CreateProduct(ctx context.Context, db DBTX, in models.ProductInput) (*models.Product, error) {
	product := &models.Product{}

	query := `
		INSERT INTO products (name, description, price, image_url, stock_quantity, category, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, NOW(), NOW())
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query,
		in.Name, in.Description, in.Price, in.ImageURL, in.StockQuantity, in.Category)
	if err := scanProduct(row, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return product, nil
}

// GetProduct returns the product regardless of its soft-delete flag.
func GetProduct(ctx context.Context, db DBTX, id int64) (*models.Product, error) {
	return getProduct(ctx, db, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetActiveProduct hides soft-deleted products behind ErrProductNotFound.
func GetActiveProduct(ctx context.Context, db DBTX, id int64) (*models.Product, error) {
	return getProduct(ctx, db, `SELECT `+productColumns+` FROM products WHERE id = $1 AND NOT is_deleted`, id)
}

func getProduct(ctx context.Context, db DBTX, query string, id int64) (*models.Product, error) {
	product := &models.Product{}

	if err := scanProduct(db.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// ListActiveProducts is the catalog listing: soft-deleted products are
// filtered out, an empty category matches everything.
func ListActiveProducts(ctx context.Context, db DBTX, filter ProductFilter) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE NOT is_deleted
		  AND ($1 = '' OR category = $1)
		ORDER BY ` + filter.Sort.orderBy()

	return queryProducts(ctx, db, query, filter.Category)
}

// ListFeaturedProducts returns the newest active products for the landing page.
func ListFeaturedProducts(ctx context.Context, db DBTX, limit int) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE NOT is_deleted
		ORDER BY created_at DESC, id DESC
		LIMIT $1`

	return queryProducts(ctx, db, query, limit)
}

// ListAllProducts is the admin listing. It includes soft-deleted rows.
func ListAllProducts(ctx context.Context, db DBTX) ([]models.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id DESC`

	return queryProducts(ctx, db, query)
}

func queryProducts(ctx context.Context, db DBTX, query string, args ...any) ([]models.Product, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var product models.Product
		if err := scanProduct(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func ListCategories(ctx context.Context, db DBTX) ([]string, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT DISTINCT category
		FROM products
		WHERE NOT is_deleted AND category <> ''
		ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return categories, nil
}

// UpdateProduct overwrites every editable field. Soft-deleted products can
// still be edited from the admin console.
func UpdateProduct(ctx context.Context, db DBTX, id int64, in models.ProductInput) (*models.Product, error) {
	product := &models.Product{}

	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, image_url = $4,
		    stock_quantity = $5, category = $6, updated_at = NOW()
		WHERE id = $7
		RETURNING ` + productColumns

	row := db.QueryRowContext(ctx, query,
		in.Name, in.Description, in.Price, in.ImageURL, in.StockQuantity, in.Category, id)
	if err := scanProduct(row, product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}

	return product, nil
}

// SoftDeleteProduct flags the product; rows are never physically removed
// because order items keep referencing them.
func SoftDeleteProduct(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE products SET is_deleted = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

// DecrementStock only succeeds while stock covers quantity, so stock can
// never go negative.
func DecrementStock(ctx context.Context, tx *sql.Tx, productID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $1,
		     updated_at = NOW()
		 WHERE id = $2
		   AND stock_quantity >= $1`,
		quantity, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database/dbtest"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

func createTestUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()

	user, err := CreateUser(context.Background(), db, email, "not-a-real-hash", "Test User")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	return user
}

func createTestProduct(t *testing.T, db *sql.DB, name, price string, stock int, category string) *models.Product {
	t.Helper()

	product, err := CreateProduct(context.Background(), db, models.ProductInput{
		Name:          name,
		Description:   "Test",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		Category:      category,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func testShipping() ShippingDetails {
	return ShippingDetails{
		CustomerName:  "Test User",
		Email:         "buyer@example.com",
		Phone:         "555-0100",
		Address:       "1 Main St",
		City:          "Springfield",
		PostalCode:    "12345",
		PaymentMethod: models.PaymentCOD,
	}
}

// expectedLines snapshots the user's cart the way checkout does.
func expectedLines(t *testing.T, db *sql.DB, userID uuid.UUID) []CartLine {
	t.Helper()

	items, err := ListCartItems(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("List cart items: %v", err)
	}

	lines := make([]CartLine, len(items))
	for i, item := range items {
		lines[i] = CartLine{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.Product.Price}
	}
	return lines
}

func sequentialOrderNumbers() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ORD-TEST-%05d", n)
	}
}

func setupDB(t *testing.T) *sql.DB {
	return dbtest.Setup(t)
}

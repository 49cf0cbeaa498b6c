package store

import (
	"context"
	"errors"
	"testing"

	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

func TestCreateAndGetProduct(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Kettle", "29.99", 100, "Kitchen")

	if product.ID == 0 {
		t.Error("Product ID should not be 0")
	}

	retrieved, err := GetActiveProduct(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}

	if retrieved.Name != "Kettle" {
		t.Errorf("Expected name Kettle, got %s", retrieved.Name)
	}
	if !retrieved.Price.Equal(decimal.RequireFromString("29.99")) {
		t.Errorf("Expected price 29.99, got %s", retrieved.Price)
	}
	if retrieved.IsDeleted {
		t.Error("New product should not be deleted")
	}
}

func TestListActiveProductsFilterAndSort(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	createTestProduct(t, db, "Teapot", "15.00", 5, "Kitchen")
	createTestProduct(t, db, "Apron", "30.00", 5, "Kitchen")
	createTestProduct(t, db, "Lamp", "5.00", 5, "Home")

	all, err := ListActiveProducts(ctx, db, ProductFilter{Sort: SortByName})
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if len(all) != 3 || all[0].Name != "Apron" || all[2].Name != "Teapot" {
		t.Errorf("Expected [Apron Lamp Teapot], got %v", names(all))
	}

	kitchen, err := ListActiveProducts(ctx, db, ProductFilter{Category: "Kitchen", Sort: SortByPrice})
	if err != nil {
		t.Fatalf("List kitchen products: %v", err)
	}
	if len(kitchen) != 2 || kitchen[0].Name != "Teapot" || kitchen[1].Name != "Apron" {
		t.Errorf("Expected [Teapot Apron], got %v", names(kitchen))
	}

	categories, err := ListCategories(ctx, db)
	if err != nil {
		t.Fatalf("List categories: %v", err)
	}
	if len(categories) != 2 || categories[0] != "Home" || categories[1] != "Kitchen" {
		t.Errorf("Expected [Home Kitchen], got %v", categories)
	}
}

func TestSoftDeleteVisibility(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	kept := createTestProduct(t, db, "Kept", "1.00", 1, "Misc")
	gone := createTestProduct(t, db, "Gone", "2.00", 1, "Gone")

	if err := SoftDeleteProduct(ctx, db, gone.ID); err != nil {
		t.Fatalf("Soft delete: %v", err)
	}

	raw, err := GetProduct(ctx, db, gone.ID)
	if err != nil {
		t.Fatalf("Get deleted product: %v", err)
	}
	if !raw.IsDeleted {
		t.Error("Deleted product should carry is_deleted = true")
	}
	if raw.Name != gone.Name || !raw.Price.Equal(gone.Price) || raw.StockQuantity != gone.StockQuantity {
		t.Error("Soft delete should not modify any other field")
	}

	if _, err := GetActiveProduct(ctx, db, gone.ID); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound for deleted product, got %v", err)
	}

	active, err := ListActiveProducts(ctx, db, ProductFilter{})
	if err != nil {
		t.Fatalf("List active: %v", err)
	}
	if len(active) != 1 || active[0].ID != kept.ID {
		t.Errorf("Catalog should only list the kept product, got %v", names(active))
	}

	categories, err := ListCategories(ctx, db)
	if err != nil {
		t.Fatalf("List categories: %v", err)
	}
	if len(categories) != 1 || categories[0] != "Misc" {
		t.Errorf("Categories of deleted products should be hidden, got %v", categories)
	}

	all, err := ListAllProducts(ctx, db)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Admin listing should include deleted products, got %v", names(all))
	}

	if err := SoftDeleteProduct(ctx, db, 999999); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestUpdateProductOverwrites(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Old", "10.00", 3, "A")

	updated, err := UpdateProduct(ctx, db, product.ID, models.ProductInput{
		Name:          "New",
		Price:         decimal.RequireFromString("12.50"),
		StockQuantity: 7,
	})
	if err != nil {
		t.Fatalf("Update product: %v", err)
	}

	if updated.Name != "New" || updated.Description != "" || updated.Category != "" {
		t.Errorf("Update should overwrite every field, got %+v", updated)
	}
	if updated.StockQuantity != 7 || !updated.Price.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("Unexpected stock/price after update: %d %s", updated.StockQuantity, updated.Price)
	}

	if _, err := UpdateProduct(ctx, db, 999999, models.ProductInput{Name: "x"}); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestListFeaturedProducts(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	for _, name := range []string{"One", "Two", "Three"} {
		createTestProduct(t, db, name, "1.00", 1, "")
	}

	featured, err := ListFeaturedProducts(ctx, db, 2)
	if err != nil {
		t.Fatalf("List featured: %v", err)
	}
	if len(featured) != 2 || featured[0].Name != "Three" {
		t.Errorf("Expected newest two, got %v", names(featured))
	}
}

func names(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

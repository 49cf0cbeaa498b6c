package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/shopspring/decimal"
)

type ShippingDetails struct {
	CustomerName  string
	Email         string
	Phone         string
	Address       string
	City          string
	PostalCode    string
	PaymentMethod string
}

// FullAddress is the single-line shipping address stored on the order.
func (s ShippingDetails) FullAddress() string {
	return strings.Join([]string{s.Address, s.City, s.PostalCode}, ", ")
}

// CartLine is what the buyer saw when they pressed "Place Order".
type CartLine struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type PlaceOrderRequest struct {
	UserID   uuid.UUID
	Shipping ShippingDetails
	Expected []CartLine
	// NewOrderNumber is called once per transaction attempt.
	NewOrderNumber func() string
}

type lockedLine struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Stock       int
	IsDeleted   bool
}

// PlaceOrder converts the user's cart into an order in one serializable
// transaction: the cart and its products are locked, checked against the
// expected snapshot, the order header and items are written, stock is
// decremented conditionally and the cart is emptied. Any failure rolls all of
// it back.
func PlaceOrder(ctx context.Context, db *sql.DB, req PlaceOrderRequest) (*models.Order, error) {
	var order *models.Order

	err := database.WithRetry(ctx, db, database.CheckoutTxOptions(), func(tx *sql.Tx) error {
		lines, err := lockCartLines(ctx, tx, req.UserID)
		if err != nil {
			return err
		}

		if len(lines) == 0 {
			return database.ErrEmptyCart
		}

		if !matchesSnapshot(lines, req.Expected) {
			return database.ErrCartChanged
		}

		totalPrice := decimal.Zero
		for _, line := range lines {
			if line.IsDeleted {
				return fmt.Errorf("%w: %q is no longer available", database.ErrProductNotFound, line.ProductName)
			}
			if line.Stock < line.Quantity {
				return database.ErrInsufficientStock
			}
			totalPrice = totalPrice.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		order, err = insertOrder(ctx, tx, req, totalPrice)
		if err != nil {
			return err
		}

		order.Items, err = insertOrderItems(ctx, tx, order.ID, lines)
		if err != nil {
			return err
		}

		for _, line := range lines {
			if err := DecrementStock(ctx, tx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		if _, err := ClearCart(ctx, tx, req.UserID); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return order, nil
}

func lockCartLines(ctx context.Context, tx *sql.Tx, userID uuid.UUID) ([]lockedLine, error) {
	query := `
		SELECT p.id, p.name, ci.quantity, p.price, p.stock_quantity, p.is_deleted
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF ci, p NOWAIT`

	rows, err := tx.QueryContext(ctx, query, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, fmt.Errorf("%w: %w", database.ErrLockTimeout, err)
		}
		return nil, fmt.Errorf("lock cart: %w", err)
	}
	defer rows.Close()

	var lines []lockedLine
	for rows.Next() {
		var line lockedLine
		if err := rows.Scan(
			&line.ProductID,
			&line.ProductName,
			&line.Quantity,
			&line.UnitPrice,
			&line.Stock,
			&line.IsDeleted,
		); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, fmt.Errorf("%w: %w", database.ErrLockTimeout, err)
		}
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return lines, nil
}

func matchesSnapshot(lines []lockedLine, expected []CartLine) bool {
	if len(lines) != len(expected) {
		return false
	}

	want := make(map[int64]CartLine, len(expected))
	for _, e := range expected {
		want[e.ProductID] = e
	}

	for _, line := range lines {
		e, ok := want[line.ProductID]
		if !ok || e.Quantity != line.Quantity || !e.UnitPrice.Equal(line.UnitPrice) {
			return false
		}
	}

	return true
}

func insertOrder(ctx context.Context, tx *sql.Tx, req PlaceOrderRequest, totalPrice decimal.Decimal) (*models.Order, error) {
	s := req.Shipping
	order := &models.Order{}

	query := `
		INSERT INTO orders (order_number, user_id, customer_name, email, phone, shipping_address,
		                    city, postal_code, payment_method, total_price, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING ` + orderColumns

	row := tx.QueryRowContext(ctx, query,
		req.NewOrderNumber(), req.UserID, s.CustomerName, s.Email, s.Phone, s.FullAddress(),
		s.City, s.PostalCode, s.PaymentMethod, totalPrice, models.OrderStatusProcessing)
	if err := scanOrder(row, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return order, nil
}

func insertOrderItems(ctx context.Context, tx *sql.Tx, orderID int64, lines []lockedLine) ([]models.OrderItem, error) {
	productIDs := make([]int64, len(lines))
	names := make([]string, len(lines))
	quantities := make([]int64, len(lines))
	unitPrices := make([]string, len(lines))
	totals := make([]string, len(lines))

	for i, line := range lines {
		productIDs[i] = line.ProductID
		names[i] = line.ProductName
		quantities[i] = int64(line.Quantity)
		unitPrices[i] = line.UnitPrice.String()
		totals[i] = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).String()
	}

	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
		SELECT $1, u.product_id, u.product_name, u.quantity, u.unit_price::numeric, u.total_price::numeric
		FROM unnest($2::bigint[], $3::text[], $4::int[], $5::text[], $6::text[])
		     AS u(product_id, product_name, quantity, unit_price, total_price)
		RETURNING ` + orderItemColumns

	rows, err := tx.QueryContext(ctx, query, orderID,
		pq.Array(productIDs), pq.Array(names), pq.Array(quantities), pq.Array(unitPrices), pq.Array(totals))
	if err != nil {
		return nil, fmt.Errorf("create order items: %w", err)
	}
	defer rows.Close()

	items, err := scanOrderItems(rows)
	if err != nil {
		return nil, err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return items, nil
}

const orderColumns = `id, order_number, user_id, customer_name, email, phone, shipping_address,
	city, postal_code, payment_method, total_price, status, created_at`

const orderItemColumns = `id, order_id, product_id, product_name, quantity, unit_price, total_price`

func scanOrder(row rowScanner, order *models.Order) error {
	return row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.CustomerName,
		&order.Email,
		&order.Phone,
		&order.ShippingAddress,
		&order.City,
		&order.PostalCode,
		&order.PaymentMethod,
		&order.TotalPrice,
		&order.Status,
		&order.CreatedAt,
	)
}

func scanOrderItems(rows *sql.Rows) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.Quantity,
			&item.UnitPrice,
			&item.TotalPrice,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return items, nil
}

// GetUserOrder returns the order with its items only when userID owns it.
func GetUserOrder(ctx context.Context, db DBTX, userID uuid.UUID, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2`

	if err := scanOrder(db.QueryRowContext(ctx, query, id, userID), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	byOrder, err := loadOrderItems(ctx, db, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = byOrder[order.ID]

	return order, nil
}

// ListUserOrdersCursor pages through a user's orders newest first, items
// included.
func ListUserOrdersCursor(ctx context.Context, db DBTX, userID uuid.UUID, cursor string, limit int) (*CursorPage[models.Order], error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCursor, err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	orders, err := queryOrders(ctx, db, query, userID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, err
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	ids := make([]int64, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
	}

	byOrder, err := loadOrderItems(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = byOrder[orders[i].ID]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		lastOrder := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: lastOrder.CreatedAt,
			ID:        lastOrder.ID,
		})
	}

	return &CursorPage[models.Order]{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListAllOrders is the admin order listing, newest first, without items.
func ListAllOrders(ctx context.Context, db DBTX, page, pageSize int) (*OffsetPage[models.Order], error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	page, offset := pageOffset(page, pageSize)
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	orders, err := queryOrders(ctx, db, query, pageSize, offset)
	if err != nil {
		return nil, err
	}

	return &OffsetPage[models.Order]{
		Items:      orders,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

type OrderStats struct {
	ActiveProducts int64           `json:"active_products"`
	TotalOrders    int64           `json:"total_orders"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
	RecentOrders   []models.Order  `json:"recent_orders"`
}

// GetOrderStats backs the admin dashboard summary cards.
func GetOrderStats(ctx context.Context, db DBTX, recent int) (*OrderStats, error) {
	stats := &OrderStats{}

	err := db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products WHERE NOT is_deleted),
			(SELECT COUNT(*) FROM orders),
			(SELECT COALESCE(SUM(total_price), 0) FROM orders)`).Scan(
		&stats.ActiveProducts,
		&stats.TotalOrders,
		&stats.TotalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}

	stats.RecentOrders, err = queryOrders(ctx, db, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, recent)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

func queryOrders(ctx context.Context, db DBTX, query string, args ...any) ([]models.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

func loadOrderItems(ctx context.Context, db DBTX, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	byOrder := make(map[int64][]models.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return byOrder, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+orderItemColumns+`
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	items, err := scanOrderItems(rows)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}

	return byOrder, nil
}

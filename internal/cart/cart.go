// Package cart keeps one user's cart in step with the cart_items table. Every
// mutation goes to the store first; local state is only ever replaced from a
// fresh read, except after Clear where the result is known.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/shopspring/decimal"
)

// MaxQuantity bounds a single cart line.
const MaxQuantity = 999

var (
	ErrNotAuthenticated = errors.New("sign in to use the cart")
	ErrInvalidQuantity  = fmt.Errorf("quantity must be between 1 and %d", MaxQuantity)
)

// Repository is the cart table scoped to its owner.
type Repository interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	Add(ctx context.Context, userID uuid.UUID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, userID uuid.UUID, itemID int64, quantity int) error
	Remove(ctx context.Context, userID uuid.UUID, itemID int64) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Snapshot is a consistent copy of the cart and its derived totals.
type Snapshot struct {
	Items      []models.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
}

type Manager struct {
	repo     Repository
	notifier notify.Notifier
	userID   *uuid.UUID

	busyMu sync.Mutex
	busy   int

	mu      sync.RWMutex
	items   []models.CartItem
	lastErr string
}

// NewManager binds a cart to userID. A nil userID is a signed-out visitor:
// reads see an empty cart and mutations are refused.
func NewManager(repo Repository, notifier notify.Notifier, userID *uuid.UUID) *Manager {
	if notifier == nil {
		notifier = notify.Discard
	}
	return &Manager{
		repo:     repo,
		notifier: notifier,
		userID:   userID,
		items:    []models.CartItem{},
	}
}

// Refresh replaces local state with the stored cart. On failure the previous
// items are kept.
func (m *Manager) Refresh(ctx context.Context) error {
	if m.userID == nil {
		m.setItems([]models.CartItem{})
		return nil
	}

	defer m.begin()()

	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) error {
	items, err := m.repo.List(ctx, *m.userID)
	if err != nil {
		m.fail(err, "Failed to fetch cart")
		return err
	}

	m.setItems(items)
	return nil
}

// Add puts quantity units of product into the cart, adding to the existing
// line for that product if there is one.
func (m *Manager) Add(ctx context.Context, product models.Product, quantity int) error {
	if m.userID == nil {
		m.notifier.Notify(notify.Failure("Authentication Required", "Please sign in to add items to your cart"))
		return ErrNotAuthenticated
	}
	if quantity < 1 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}

	defer m.begin()()

	if err := m.repo.Add(ctx, *m.userID, product.ID, quantity); err != nil {
		m.fail(err, failureMessage(err, "Failed to add item to cart"))
		return err
	}

	// A failed re-read has already been reported; the add itself stands.
	_ = m.refresh(ctx)
	m.notifier.Notify(notify.Success("Success", "Item added to cart"))
	return nil
}

// UpdateQuantity sets a line's quantity. Values below 1 are ignored; use
// Remove to drop a line.
func (m *Manager) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if m.userID == nil {
		return ErrNotAuthenticated
	}

	defer m.begin()()

	if err := m.repo.SetQuantity(ctx, *m.userID, itemID, quantity); err != nil {
		m.fail(err, failureMessage(err, "Failed to update cart"))
		return err
	}

	_ = m.refresh(ctx)
	m.notifier.Notify(notify.Success("Success", "Cart updated"))
	return nil
}

func (m *Manager) Remove(ctx context.Context, itemID int64) error {
	if m.userID == nil {
		return ErrNotAuthenticated
	}

	defer m.begin()()

	if err := m.repo.Remove(ctx, *m.userID, itemID); err != nil {
		m.fail(err, "Failed to remove item from cart")
		return err
	}

	_ = m.refresh(ctx)
	m.notifier.Notify(notify.Success("Success", "Item removed from cart"))
	return nil
}

// Clear empties the cart without re-reading it.
func (m *Manager) Clear(ctx context.Context) error {
	if m.userID == nil {
		return nil
	}

	defer m.begin()()

	if err := m.repo.Clear(ctx, *m.userID); err != nil {
		m.fail(err, "Failed to clear cart")
		return err
	}

	m.setItems([]models.CartItem{})
	m.notifier.Notify(notify.Success("Success", "Cart cleared"))
	return nil
}

// Forget empties local state after the stored cart was consumed elsewhere,
// such as by checkout.
func (m *Manager) Forget() {
	m.setItems([]models.CartItem{})
}

func (m *Manager) Items() []models.CartItem {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CartItem, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Manager) TotalItems() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return totalItems(m.items)
}

func (m *Manager) TotalPrice() decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return totalPrice(m.items)
}

// Snapshot reads items and totals under one lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]models.CartItem, len(m.items))
	copy(items, m.items)

	return Snapshot{
		Items:      items,
		TotalItems: totalItems(items),
		TotalPrice: totalPrice(items),
	}
}

// Busy reports whether any operation is in flight. Concurrent operations
// share the one flag.
func (m *Manager) Busy() bool {
	m.busyMu.Lock()
	defer m.busyMu.Unlock()
	return m.busy > 0
}

// Err is the message of the last failed operation, or "" if the most recent
// operation has not failed.
func (m *Manager) Err() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) UserID() *uuid.UUID {
	return m.userID
}

// begin marks an operation in flight and clears the last error. The returned
// func ends it.
func (m *Manager) begin() func() {
	m.busyMu.Lock()
	m.busy++
	m.busyMu.Unlock()

	m.mu.Lock()
	m.lastErr = ""
	m.mu.Unlock()

	return func() {
		m.busyMu.Lock()
		m.busy--
		m.busyMu.Unlock()
	}
}

func (m *Manager) fail(err error, message string) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()

	m.notifier.Notify(notify.Failure("Error", message))
}

func failureMessage(err error, fallback string) string {
	if errors.Is(err, database.ErrInsufficientStock) {
		return "Not enough stock available"
	}
	return fallback
}

func (m *Manager) setItems(items []models.CartItem) {
	m.mu.Lock()
	m.items = items
	m.mu.Unlock()
}

func totalItems(items []models.CartItem) int {
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n
}

func totalPrice(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

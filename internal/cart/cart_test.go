package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	mu       sync.Mutex
	products map[int64]models.Product
	items    []models.CartItem
	nextID   int64
	calls    int

	failNext error
	blockAdd chan struct{}
}

func newMemoryRepository(products ...models.Product) *memoryRepository {
	r := &memoryRepository{products: make(map[int64]models.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *memoryRepository) takeFailure() error {
	r.calls++
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *memoryRepository) List(_ context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return nil, err
	}

	out := []models.CartItem{}
	for _, item := range r.items {
		if item.UserID == userID {
			item.Product = r.products[item.ProductID]
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memoryRepository) Add(_ context.Context, userID uuid.UUID, productID int64, quantity int) error {
	if r.blockAdd != nil {
		<-r.blockAdd
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}

	p, ok := r.products[productID]
	if !ok || p.IsDeleted {
		return database.ErrProductNotFound
	}
	for i := range r.items {
		if r.items[i].UserID == userID && r.items[i].ProductID == productID {
			r.items[i].Quantity += quantity
			return nil
		}
	}
	r.nextID++
	r.items = append(r.items, models.CartItem{ID: r.nextID, UserID: userID, ProductID: productID, Quantity: quantity})
	return nil
}

func (r *memoryRepository) SetQuantity(_ context.Context, userID uuid.UUID, itemID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}

	for i := range r.items {
		if r.items[i].ID == itemID && r.items[i].UserID == userID {
			r.items[i].Quantity = quantity
			return nil
		}
	}
	return database.ErrCartItemNotFound
}

func (r *memoryRepository) Remove(_ context.Context, userID uuid.UUID, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}

	for i := range r.items {
		if r.items[i].ID == itemID && r.items[i].UserID == userID {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return database.ErrCartItemNotFound
}

func (r *memoryRepository) Clear(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFailure(); err != nil {
		return err
	}

	kept := r.items[:0]
	for _, item := range r.items {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	r.items = kept
	return nil
}

func (r *memoryRepository) fail(err error) {
	r.mu.Lock()
	r.failNext = err
	r.mu.Unlock()
}

var (
	productA = models.Product{ID: 1, Name: "Kettle", Price: decimal.RequireFromString("10.00"), StockQuantity: 5}
	productB = models.Product{ID: 2, Name: "Mug", Price: decimal.RequireFromString("5.00"), StockQuantity: 5}
)

func newUserManager(t *testing.T, repo Repository) (*Manager, *notify.Collector) {
	t.Helper()
	userID := uuid.New()
	toasts := notify.NewCollector()
	return NewManager(repo, toasts, &userID), toasts
}

func TestAddUnauthenticatedDoesNothing(t *testing.T) {
	repo := newMemoryRepository(productA)
	toasts := notify.NewCollector()
	m := NewManager(repo, toasts, nil)

	err := m.Add(context.Background(), productA, 1)

	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, repo.items)
	assert.Equal(t, 0, repo.calls)
	assert.Empty(t, m.Items())
	require.Len(t, toasts.Toasts(), 1)
	assert.Equal(t, notify.Failure("Authentication Required", "Please sign in to add items to your cart"), toasts.Toasts()[0])
}

func TestAddTwiceMergesIntoOneLine(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 1))
	require.NoError(t, m.Add(ctx, productA, 1))

	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "Kettle", items[0].Product.Name)
	assert.Equal(t, []notify.Toast{
		notify.Success("Success", "Item added to cart"),
		notify.Success("Success", "Item added to cart"),
	}, toasts.Toasts())
}

func TestConcurrentAddsSum(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, _ := newUserManager(t, repo)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Add(ctx, productA, 1))
		}()
	}
	wg.Wait()

	require.NoError(t, m.Refresh(ctx))
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 10, items[0].Quantity)
}

func TestAddRejectsNonPositiveQuantity(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, _ := newUserManager(t, repo)

	assert.ErrorIs(t, m.Add(context.Background(), productA, 0), ErrInvalidQuantity)
	assert.Equal(t, 0, repo.calls)
}

func TestQuantityAboveLimitRejectedBeforeStore(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	assert.ErrorIs(t, m.Add(ctx, productA, MaxQuantity+1), ErrInvalidQuantity)
	assert.ErrorIs(t, m.UpdateQuantity(ctx, 1, MaxQuantity+1), ErrInvalidQuantity)
	assert.Equal(t, 0, repo.calls)
	assert.Empty(t, toasts.Toasts())
}

func TestAddInsufficientStockToast(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, toasts := newUserManager(t, repo)

	repo.fail(database.ErrInsufficientStock)
	err := m.Add(context.Background(), productA, 6)

	assert.ErrorIs(t, err, database.ErrInsufficientStock)
	assert.Empty(t, m.Items())
	assert.Equal(t, []notify.Toast{notify.Failure("Error", "Not enough stock available")}, toasts.Toasts())
}

func TestAddFailureKeepsState(t *testing.T) {
	repo := newMemoryRepository(productA, productB)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 1))

	repo.fail(errors.New("connection reset"))
	err := m.Add(ctx, productB, 1)

	require.Error(t, err)
	assert.Equal(t, "connection reset", m.Err())
	require.Len(t, m.Items(), 1)
	assert.Equal(t, notify.Failure("Error", "Failed to add item to cart"), toasts.Toasts()[1])

	require.NoError(t, m.Refresh(ctx))
	assert.Empty(t, m.Err())
}

func TestTotals(t *testing.T) {
	repo := newMemoryRepository(productA, productB)
	m, _ := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 2))
	require.NoError(t, m.Add(ctx, productB, 1))

	assert.Equal(t, 3, m.TotalItems())
	assert.True(t, decimal.RequireFromString("25.00").Equal(m.TotalPrice()), m.TotalPrice().String())

	snap := m.Snapshot()
	assert.Len(t, snap.Items, 2)
	assert.Equal(t, 3, snap.TotalItems)
	assert.True(t, snap.TotalPrice.Equal(m.TotalPrice()))
}

func TestUpdateQuantity(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 2))
	itemID := m.Items()[0].ID

	for _, q := range []int{0, -1} {
		calls := repo.calls
		require.NoError(t, m.UpdateQuantity(ctx, itemID, q))
		assert.Equal(t, calls, repo.calls, "quantity %d reached the store", q)
		assert.Equal(t, 2, m.Items()[0].Quantity)
	}

	require.NoError(t, m.UpdateQuantity(ctx, itemID, 7))
	assert.Equal(t, 7, m.Items()[0].Quantity)
	assert.Equal(t, notify.Success("Success", "Cart updated"), toasts.Toasts()[len(toasts.Toasts())-1])
}

func TestUpdateQuantityOtherUsersItem(t *testing.T) {
	repo := newMemoryRepository(productA)
	owner, _ := newUserManager(t, repo)
	other, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, owner.Add(ctx, productA, 1))
	itemID := owner.Items()[0].ID

	err := other.UpdateQuantity(ctx, itemID, 5)
	assert.ErrorIs(t, err, database.ErrCartItemNotFound)
	assert.Equal(t, notify.Failure("Error", "Failed to update cart"), toasts.Toasts()[0])

	require.NoError(t, owner.Refresh(ctx))
	assert.Equal(t, 1, owner.Items()[0].Quantity)
}

func TestRemove(t *testing.T) {
	repo := newMemoryRepository(productA, productB)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 1))
	require.NoError(t, m.Add(ctx, productB, 1))

	require.NoError(t, m.Remove(ctx, m.Items()[0].ID))
	items := m.Items()
	require.Len(t, items, 1)
	assert.Equal(t, productB.ID, items[0].ProductID)
	assert.Equal(t, notify.Success("Success", "Item removed from cart"), toasts.Toasts()[2])

	assert.ErrorIs(t, m.Remove(ctx, 999), database.ErrCartItemNotFound)
}

func TestClearEmptiesWithoutRefetch(t *testing.T) {
	repo := newMemoryRepository(productA, productB)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 3))
	require.NoError(t, m.Add(ctx, productB, 1))

	calls := repo.calls
	require.NoError(t, m.Clear(ctx))

	assert.Equal(t, calls+1, repo.calls)
	assert.Empty(t, m.Items())
	assert.Equal(t, 0, m.TotalItems())
	assert.True(t, m.TotalPrice().IsZero())
	assert.Equal(t, notify.Success("Success", "Cart cleared"), toasts.Toasts()[2])
}

func TestClearFailureKeepsItems(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 1))
	repo.fail(errors.New("timeout"))

	require.Error(t, m.Clear(ctx))
	assert.Len(t, m.Items(), 1)
	assert.Equal(t, notify.Failure("Error", "Failed to clear cart"), toasts.Toasts()[1])
}

func TestRefreshSignedOutEmpties(t *testing.T) {
	m := NewManager(newMemoryRepository(), nil, nil)

	require.NoError(t, m.Refresh(context.Background()))
	assert.Empty(t, m.Items())
	assert.Nil(t, m.UserID())
}

func TestRefreshFailure(t *testing.T) {
	repo := newMemoryRepository(productA)
	m, toasts := newUserManager(t, repo)
	ctx := context.Background()

	require.NoError(t, m.Add(ctx, productA, 1))
	repo.fail(errors.New("boom"))

	require.Error(t, m.Refresh(ctx))
	assert.Len(t, m.Items(), 1)
	assert.Equal(t, "boom", m.Err())
	assert.Equal(t, notify.Failure("Error", "Failed to fetch cart"), toasts.Toasts()[1])
}

func TestBusyWhileInFlight(t *testing.T) {
	repo := newMemoryRepository(productA)
	repo.blockAdd = make(chan struct{})
	m, _ := newUserManager(t, repo)

	done := make(chan error)
	go func() { done <- m.Add(context.Background(), productA, 1) }()

	assert.Eventually(t, m.Busy, time.Second, time.Millisecond)
	close(repo.blockAdd)
	require.NoError(t, <-done)
	assert.False(t, m.Busy())
}

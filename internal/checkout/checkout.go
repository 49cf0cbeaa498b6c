// Package checkout turns a user's cart into an order.
package checkout

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/config"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
)

var (
	ErrNotAuthenticated = errors.New("sign in to check out")
	ErrEmptyCart        = errors.New("cart is empty")
)

// Form is the shipping and payment step of checkout.
type Form struct {
	CustomerName  string `json:"customer_name" validate:"required,max=100"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,max=30"`
	Address       string `json:"address" validate:"required,max=200"`
	City          string `json:"city" validate:"required,max=100"`
	PostalCode    string `json:"postal_code" validate:"required,max=20"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=COD 'Credit Card' PayPal"`
}

func (f Form) shipping() store.ShippingDetails {
	return store.ShippingDetails{
		CustomerName:  strings.TrimSpace(f.CustomerName),
		Email:         strings.TrimSpace(f.Email),
		Phone:         strings.TrimSpace(f.Phone),
		Address:       strings.TrimSpace(f.Address),
		City:          strings.TrimSpace(f.City),
		PostalCode:    strings.TrimSpace(f.PostalCode),
		PaymentMethod: f.PaymentMethod,
	}
}

// Receipt tells the client which order was created and where to go next.
type Receipt struct {
	Order         *models.Order `json:"order"`
	RedirectPath  string        `json:"redirect_path"`
	RedirectAfter int64         `json:"redirect_after_ms"`
}

// OrderPlacer writes an order atomically.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*models.Order, error)
}

type postgresPlacer struct {
	db *sql.DB
}

func NewPostgresPlacer(db *sql.DB) OrderPlacer {
	return &postgresPlacer{db: db}
}

func (p *postgresPlacer) PlaceOrder(ctx context.Context, req store.PlaceOrderRequest) (*models.Order, error) {
	return store.PlaceOrder(ctx, p.db, req)
}

type Sequencer struct {
	placer         OrderPlacer
	logger         *slog.Logger
	redirectPath   string
	redirectAfter  time.Duration
	newOrderNumber func() string
}

type Option func(*Sequencer)

// WithOrderNumbers replaces the order number generator.
func WithOrderNumbers(fn func() string) Option {
	return func(s *Sequencer) { s.newOrderNumber = fn }
}

func NewSequencer(placer OrderPlacer, cfg config.CheckoutConfig, logger *slog.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		placer:         placer,
		logger:         logger,
		redirectPath:   cfg.RedirectPath,
		redirectAfter:  cfg.RedirectDelay,
		newOrderNumber: NewOrderNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place checks out the cart held by m. m must have been refreshed; its
// snapshot is what the buyer agreed to pay, and the order is refused with
// database.ErrCartChanged if the stored cart no longer matches it.
func (s *Sequencer) Place(ctx context.Context, m *cart.Manager, form Form, notifier notify.Notifier) (*Receipt, error) {
	if notifier == nil {
		notifier = notify.Discard
	}

	userID := m.UserID()
	snap := m.Snapshot()

	if userID == nil || len(snap.Items) == 0 {
		notifier.Notify(notify.Failure("Error", "Please sign in and add items to cart"))
		if userID == nil {
			return nil, ErrNotAuthenticated
		}
		return nil, ErrEmptyCart
	}

	if err := validation.Struct(form); err != nil {
		return nil, err
	}

	expected := make([]store.CartLine, len(snap.Items))
	for i, item := range snap.Items {
		expected[i] = store.CartLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.Product.Price,
		}
	}

	order, err := s.placer.PlaceOrder(ctx, store.PlaceOrderRequest{
		UserID:         *userID,
		Shipping:       form.shipping(),
		Expected:       expected,
		NewOrderNumber: s.newOrderNumber,
	})
	if err != nil {
		s.logger.Error("checkout failed", "user_id", userID.String(), "items", len(expected), "error", err)
		notifier.Notify(notify.Failure("Error", failureDescription(err)))
		return nil, err
	}

	m.Forget()

	s.logger.Info("order placed",
		"user_id", userID.String(),
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"total", order.TotalPrice.StringFixed(2))

	notifier.Notify(notify.Toast{
		Title:       "Order placed successfully!",
		Description: fmt.Sprintf("Order #%s has been created. Redirecting to dashboard...", order.OrderNumber),
		Variant:     notify.VariantDefault,
	})

	return &Receipt{
		Order:         order,
		RedirectPath:  s.redirectPath,
		RedirectAfter: s.redirectAfter.Milliseconds(),
	}, nil
}

func failureDescription(err error) string {
	switch {
	case errors.Is(err, database.ErrInsufficientStock):
		return "Some items no longer have enough stock. Please review your cart."
	case errors.Is(err, database.ErrCartChanged):
		return "Your cart changed while checking out. Please review it and try again."
	default:
		return "Failed to place order. Please try again."
	}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewOrderNumber returns ORD-<unix millis in base 36>-<5 random base 36
// digits>, upper-cased.
func NewOrderNumber() string {
	return orderNumber(time.Now())
}

func orderNumber(now time.Time) string {
	suffix := make([]byte, 5)
	radix := big.NewInt(int64(len(base36)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, radix)
		if err != nil {
			panic(err)
		}
		suffix[i] = base36[n.Int64()]
	}

	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	return strings.ToUpper("ORD-" + stamp + "-" + string(suffix))
}

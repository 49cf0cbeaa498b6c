// Package api is the storefront's JSON surface. Every response carries the
// toasts raised while serving it.
package api

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/metrics"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/store"
)

// Sessions is the part of auth.Provider the API uses.
type Sessions interface {
	SignUp(ctx context.Context, in auth.SignUpInput) (*auth.Session, error)
	SignInWithPassword(ctx context.Context, in auth.SignInInput) (*auth.Session, error)
	GetSession(ctx context.Context, token string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
}

type Profiles interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

type postgresProfiles struct {
	db *sql.DB
}

func NewPostgresProfiles(db *sql.DB) Profiles {
	return &postgresProfiles{db: db}
}

func (p *postgresProfiles) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return store.GetProfile(ctx, p.db, userID)
}

// Deps is everything the router needs. DB backs the catalog, order and
// admin routes directly.
type Deps struct {
	DB        *sql.DB
	Sessions  Sessions
	Profiles  Profiles
	Carts     cart.Repository
	Checkout  *checkout.Sequencer
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Logger    *slog.Logger
	GinMode   string
	Readiness func(ctx context.Context) error
}

type handler struct {
	db        *sql.DB
	sessions  Sessions
	profiles  Profiles
	carts     cart.Repository
	checkout  *checkout.Sequencer
	metrics   *metrics.Metrics
	readiness func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	if d.GinMode != "" {
		gin.SetMode(d.GinMode)
	}

	h := &handler{
		db:        d.DB,
		sessions:  d.Sessions,
		profiles:  d.Profiles,
		carts:     d.Carts,
		checkout:  d.Checkout,
		metrics:   d.Metrics,
		readiness: d.Readiness,
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestContext(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}

	r.GET("/healthz", h.health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Registered ahead of authenticate: a stale bearer token must not
	// prevent signing in again or signing out twice.
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/signup", h.signUp)
		authGroup.POST("/signin", h.signIn)
		authGroup.POST("/signout", h.signOut)
	}

	r.Use(h.authenticate())

	r.GET("/auth/session", requireUser(), h.session)

	products := r.Group("/products")
	{
		products.GET("", h.listProducts)
		products.GET("/categories", h.listCategories)
		products.GET("/featured", h.listFeatured)
		products.GET("/:id", h.getProduct)
	}

	// Cart and checkout accept anonymous callers; the cart and the
	// sequencer refuse them with their own notifications.
	cartGroup := r.Group("/cart")
	{
		cartGroup.GET("", h.getCart)
		cartGroup.POST("", h.addToCart)
		cartGroup.PUT("/:id", h.updateCartItem)
		cartGroup.DELETE("/:id", h.removeCartItem)
		cartGroup.DELETE("", h.clearCart)
	}
	r.POST("/checkout", h.placeOrder)

	orders := r.Group("/orders", requireUser())
	{
		orders.GET("", h.listOrders)
		orders.GET("/:id", h.getOrder)
	}

	admin := r.Group("/admin", requireRole(models.RoleAdmin))
	{
		admin.GET("/products", h.adminListProducts)
		admin.GET("/products/:id", h.adminGetProduct)
		admin.POST("/products", h.adminCreateProduct)
		admin.PUT("/products/:id", h.adminUpdateProduct)
		admin.DELETE("/products/:id", h.adminDeleteProduct)
		admin.GET("/orders", h.adminListOrders)
		admin.GET("/stats", h.adminStats)
	}

	return r
}

func (h *handler) health(c *gin.Context) {
	if h.readiness != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.readiness(ctx); err != nil {
			requestLogger(c).Warn("health check failed", "error", err)
			respondError(c, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) observeCart(operation string, err error) {
	if h.metrics != nil {
		h.metrics.ObserveCartMutation(operation, err)
	}
}

package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/safar/go-storefront/internal/database"
	"github.com/stretchr/testify/assert"
)

func TestObserveCheckout(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCheckout(nil)
	m.ObserveCheckout(nil)
	m.ObserveCheckout(fmt.Errorf("place order: %w", database.ErrInsufficientStock))
	m.ObserveCheckout(database.ErrCartChanged)
	m.ObserveCheckout(errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkouts.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("cart_changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkouts.WithLabelValues("error")))
}

func TestObserveCartMutation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveCartMutation("add", nil)
	m.ObserveCartMutation("add", errors.New("nope"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("add", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("add", "error")))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry())

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/products/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/products/1", "/products/2", "/nowhere"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/products/:id", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
}

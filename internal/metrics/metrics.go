// Package metrics exposes storefront counters to Prometheus.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
)

type Metrics struct {
	checkouts       *prometheus.CounterVec
	cartMutations   *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		checkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout attempts by outcome",
		}, []string{"outcome"}),

		cartMutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations by operation and result",
		}, []string{"operation", "result"}),

		authEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_events_total",
			Help: "Auth state changes by event",
		}, []string{"event"}),

		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "route"}),
	}
}

// ObserveCheckout records the outcome of one checkout attempt.
func (m *Metrics) ObserveCheckout(err error) {
	m.checkouts.WithLabelValues(checkoutOutcome(err)).Inc()
}

func checkoutOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, database.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, database.ErrCartChanged):
		return "cart_changed"
	case errors.Is(err, database.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "error"
	}
}

func (m *Metrics) ObserveCartMutation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.cartMutations.WithLabelValues(operation, result).Inc()
}

// TrackAuth counts every event p broadcasts until the subscription is
// dropped.
func (m *Metrics) TrackAuth(p *auth.Provider) *auth.Subscription {
	return p.OnAuthStateChange(func(event auth.Event, _ *auth.Session) {
		m.authEvents.WithLabelValues(string(event)).Inc()
	})
}

// Middleware records request counts and latency by matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/checkout"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
)

type envelope struct {
	Data          any            `json:"data,omitempty"`
	Error         *errorBody     `json:"error,omitempty"`
	Notifications []notify.Toast `json:"notifications"`
}

type errorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func respondJSON(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Data: data, Notifications: toasts(c)})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{
		Error:         &errorBody{Message: message},
		Notifications: toasts(c),
	})
}

// respondErr maps err onto a status code. Unexpected errors are logged and
// reported without their text.
func respondErr(c *gin.Context, err error) {
	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, envelope{
			Error:         &errorBody{Message: "validation failed", Fields: vErrs},
			Notifications: toasts(c),
		})
		return
	}

	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		requestLogger(c).Error("request failed", "path", c.FullPath(), "error", err)
		message = "internal server error"
	}

	respondError(c, status, message)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrNotAuthenticated),
		errors.Is(err, cart.ErrNotAuthenticated),
		errors.Is(err, checkout.ErrNotAuthenticated):
		return http.StatusUnauthorized, err.Error()

	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, err.Error()

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, database.ErrEmptyCart),
		errors.Is(err, store.ErrInvalidCursor):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrCartItemNotFound),
		errors.Is(err, database.ErrOrderNotFound),
		errors.Is(err, database.ErrProfileNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, database.ErrInsufficientStock),
		errors.Is(err, database.ErrCartChanged),
		errors.Is(err, database.ErrLockTimeout):
		return http.StatusConflict, err.Error()

	default:
		return http.StatusInternalServerError, err.Error()
	}
}

func toasts(c *gin.Context) []notify.Toast {
	if v, ok := c.Get(collectorKey); ok {
		return v.(*notify.Collector).Toasts()
	}
	return []notify.Toast{}
}

// notifier collects toasts for the response and mirrors them to the request
// logger.
func notifier(c *gin.Context) notify.Notifier {
	v, ok := c.Get(collectorKey)
	if !ok {
		return notify.WithLog(requestLogger(c), nil)
	}
	return notify.WithLog(requestLogger(c), v.(*notify.Collector))
}

func requestLogger(c *gin.Context) *slog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		return v.(*slog.Logger)
	}
	return slog.Default()
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		respondError(c, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt returns def for missing or malformed values and clamps to
// [1, upper].
func queryInt(c *gin.Context, key string, def, upper int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return def
	}
	if upper > 0 && n > upper {
		return upper
	}
	return n
}

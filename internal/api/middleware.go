package api

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/logging"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
)

const (
	loggerKey    = "logger"
	collectorKey = "notifications"
	sessionKey   = "session"
	profileKey   = "profile"

	requestIDHeader = "X-Request-ID"
)

// requestContext tags the request with a trace id, a scoped logger and a
// toast collector, then logs the outcome.
func requestContext(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(requestIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Header(requestIDHeader, traceID)

		reqLogger := logger.With(slog.String(logging.TraceID, traceID))
		c.Set(logging.TraceID, traceID)
		c.Set(loggerKey, reqLogger)
		c.Set(collectorKey, notify.NewCollector())

		start := time.Now()
		c.Next()

		reqLogger.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)))
	}
}

// authenticate resolves an optional bearer token. Requests without one pass
// through anonymously; a token that does not resolve is rejected.
func (h *handler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		sess, err := h.sessions.GetSession(c.Request.Context(), token)
		if err != nil {
			respondErr(c, err)
			return
		}

		profile, err := h.profiles.GetProfile(c.Request.Context(), sess.UserID)
		if err != nil && !errors.Is(err, database.ErrProfileNotFound) {
			respondErr(c, err)
			return
		}

		c.Set(sessionKey, sess)
		if profile != nil {
			c.Set(profileKey, profile)
		}
		c.Set(loggerKey, requestLogger(c).With(slog.String("user_id", sess.UserID.String())))
		c.Next()
	}
}

func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			respondErr(c, auth.ErrNotAuthenticated)
			return
		}
		c.Next()
	}
}

func requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentSession(c) == nil {
			respondErr(c, auth.ErrNotAuthenticated)
			return
		}
		if err := auth.RequireRole(currentProfile(c), role); err != nil {
			respondErr(c, err)
			return
		}
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func currentSession(c *gin.Context) *auth.Session {
	if v, ok := c.Get(sessionKey); ok {
		return v.(*auth.Session)
	}
	return nil
}

func currentProfile(c *gin.Context) *models.Profile {
	if v, ok := c.Get(profileKey); ok {
		return v.(*models.Profile)
	}
	return nil
}

// currentUserID is nil for anonymous requests.
func currentUserID(c *gin.Context) *uuid.UUID {
	sess := currentSession(c)
	if sess == nil {
		return nil
	}
	id := sess.UserID
	return &id
}

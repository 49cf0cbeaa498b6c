package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/auth"
	"github.com/safar/go-storefront/internal/database"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
)

type sessionResponse struct {
	Session *auth.Session   `json:"session"`
	Profile *models.Profile `json:"profile,omitempty"`
}

func (h *handler) signUp(c *gin.Context) {
	var req auth.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.sessions.SignUp(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			notifier(c).Notify(notify.Failure("Error", "An account with this email already exists"))
		}
		respondErr(c, err)
		return
	}

	notifier(c).Notify(notify.Success("Success", "Account created successfully"))
	respondJSON(c, http.StatusCreated, h.withProfile(c, sess))
}

func (h *handler) signIn(c *gin.Context) {
	var req auth.SignInInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	sess, err := h.sessions.SignInWithPassword(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			notifier(c).Notify(notify.Failure("Error", "Invalid email or password"))
		}
		respondErr(c, err)
		return
	}

	notifier(c).Notify(notify.Success("Success", "Signed in successfully"))
	respondJSON(c, http.StatusOK, h.withProfile(c, sess))
}

func (h *handler) signOut(c *gin.Context) {
	token, _ := bearerToken(c.GetHeader("Authorization"))
	if token != "" {
		if err := h.sessions.SignOut(c.Request.Context(), token); err != nil {
			respondErr(c, err)
			return
		}
	}

	notifier(c).Notify(notify.Success("Success", "Signed out successfully"))
	respondJSON(c, http.StatusOK, gin.H{"signed_out": true})
}

func (h *handler) session(c *gin.Context) {
	respondJSON(c, http.StatusOK, sessionResponse{
		Session: currentSession(c),
		Profile: currentProfile(c),
	})
}

// withProfile attaches the profile when it can be read. A missing profile
// does not fail the sign-in.
func (h *handler) withProfile(c *gin.Context, sess *auth.Session) sessionResponse {
	profile, err := h.profiles.GetProfile(c.Request.Context(), sess.UserID)
	if err != nil {
		requestLogger(c).Warn("profile lookup failed", "user_id", sess.UserID.String(), "error", err)
	}
	return sessionResponse{Session: sess, Profile: profile}
}

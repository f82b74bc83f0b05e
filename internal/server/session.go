package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	identityContextKey     = "bookmarks_identity"
	sessionErrorContextKey = "bookmarks_session_error"
)

const (
	messageNotAuthenticated = "Not authenticated"
	messageInvalidToken     = "Invalid token"
	messageLoginToSave      = "Please log in to save bookmarks"
	messageSessionExpired   = "Your session has expired. Please log in again."
)

// loadSession resolves the caller without rejecting anonymous requests.
// Each handler decides how a missing or invalid session is reported.
func (h *httpHandler) loadSession(c *gin.Context) {
	identity, err := h.sessions.Verify(c.Request)
	if err != nil {
		c.Set(sessionErrorContextKey, err)
		switch {
		case errors.Is(err, auth.ErrMissingSessionToken):
		case errors.Is(err, auth.ErrExpiredSessionToken):
			h.logger.Info("session validation failed", zap.Error(err))
		default:
			h.logger.Warn("session validation failed", zap.Error(err))
		}
		c.Next()
		return
	}
	c.Set(identityContextKey, identity)
	c.Next()
}

func currentIdentity(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityContextKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok && identity.UserID != ""
}

func sessionFailure(c *gin.Context) error {
	value, ok := c.Get(sessionErrorContextKey)
	if !ok {
		return auth.ErrMissingSessionToken
	}
	err, ok := value.(error)
	if !ok || err == nil {
		return auth.ErrMissingSessionToken
	}
	return err
}

// requireIdentity aborts with 401 when the caller has no valid session. The
// first message covers an absent token, the second a token that failed validation.
func requireIdentity(c *gin.Context, missingMessage, invalidMessage string) (auth.Identity, bool) {
	if identity, ok := currentIdentity(c); ok {
		return identity, true
	}
	message := invalidMessage
	if errors.Is(sessionFailure(c), auth.ErrMissingSessionToken) {
		message = missingMessage
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
	return auth.Identity{}, false
}

func (h *httpHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), token, maxAge, "/", "", h.secureCookies, true)
}

func (h *httpHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", h.secureCookies, true)
}

package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	messageCredentialsRequired = "Email and password are required"
	messageRegistrationFailed  = "Failed to register user. Email may already be in use."
	messageInvalidCredentials  = "Invalid email or password"
	messageRegistrationError   = "An error occurred during registration"
	messageLoginError          = "An error occurred during login"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageCredentialsRequired})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": messageCredentialsRequired})
		case errors.Is(err, users.ErrPasswordTooShort):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters"})
		case errors.Is(err, users.ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email is invalid"})
		case errors.Is(err, users.ErrEmailTaken):
			c.JSON(http.StatusBadRequest, gin.H{"error": messageRegistrationFailed})
		default:
			h.logger.Error("user registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": messageRegistrationError})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "User registered successfully",
		"user":    userPayload{ID: user.ID, Email: user.Email},
	})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": messageCredentialsRequired})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), request.Email, request.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrMissingCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": messageInvalidCredentials})
			return
		}
		h.logger.Error("user authentication failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": messageLoginError})
		return
	}

	token, expiresAt, err := h.tokens.IssueSessionToken(c.Request.Context(), user.ID, user.Email)
	if err != nil {
		h.logger.Error("failed to issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": messageLoginError})
		return
	}

	h.setSessionCookie(c, token, expiresAt)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in successfully",
		"user":    userPayload{ID: user.ID, Email: user.Email},
	})
}

func (h *httpHandler) handleLogout(c *gin.Context) {
	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *httpHandler) handleMe(c *gin.Context) {
	identity, ok := requireIdentity(c, messageNotAuthenticated, messageInvalidToken)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": userPayload{ID: identity.UserID, Email: identity.Email}})
}

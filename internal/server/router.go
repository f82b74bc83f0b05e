package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/bookmarks"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	errMissingBookmarkService = errors.New("bookmark service dependency required")
	errMissingAccountService  = errors.New("account service dependency required")
	errMissingTokenIssuer     = errors.New("token issuer dependency required")
	errMissingSessionVerifier = errors.New("session validator dependency required")
)

// BookmarkService is the bookmark store consumed by the HTTP surface.
type BookmarkService interface {
	List(ctx context.Context, userID bookmarks.UserID) ([]bookmarks.Bookmark, error)
	ListByTag(ctx context.Context, userID bookmarks.UserID, tag string) ([]bookmarks.Bookmark, error)
	Tags(ctx context.Context, userID bookmarks.UserID) ([]string, error)
	Create(ctx context.Context, request bookmarks.CreateRequest) (bookmarks.Bookmark, error)
	Update(ctx context.Context, userID bookmarks.UserID, bookmarkID string, patch bookmarks.Patch) (bookmarks.Bookmark, error)
	Delete(ctx context.Context, userID bookmarks.UserID, bookmarkID string) error
	Reorder(ctx context.Context, userID bookmarks.UserID, bookmarkIDs []string) (bookmarks.ReorderResult, error)
}

// AccountService registers and authenticates users.
type AccountService interface {
	Register(ctx context.Context, email, password string) (users.User, error)
	Authenticate(ctx context.Context, email, password string) (users.User, error)
}

// SessionIssuer signs session tokens.
type SessionIssuer interface {
	IssueSessionToken(ctx context.Context, userID, email string) (string, time.Time, error)
}

// SessionVerifier resolves the caller's identity from a request.
type SessionVerifier interface {
	Verify(r *http.Request) (auth.Identity, error)
	CookieName() string
}

// Dependencies wires the HTTP surface.
type Dependencies struct {
	Bookmarks      BookmarkService
	Accounts       AccountService
	TokenIssuer    SessionIssuer
	Sessions       SessionVerifier
	AllowedOrigins []string
	SecureCookies  bool
	Logger         *zap.Logger
}

// NewHTTPHandler builds the gin router serving the JSON API.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Bookmarks == nil {
		return nil, errMissingBookmarkService
	}
	if deps.Accounts == nil {
		return nil, errMissingAccountService
	}
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.Sessions == nil {
		return nil, errMissingSessionVerifier
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		bookmarks:     deps.Bookmarks,
		accounts:      deps.Accounts,
		tokens:        deps.TokenIssuer,
		sessions:      deps.Sessions,
		secureCookies: deps.SecureCookies,
		logger:        logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.Use(handler.loadSession)

	api.POST("/auth/register", handler.handleRegister)
	api.POST("/auth/login", handler.handleLogin)
	api.POST("/auth/logout", handler.handleLogout)
	api.GET("/auth/me", handler.handleMe)

	api.GET("/bookmarks", handler.handleListBookmarks)
	api.POST("/bookmarks", handler.handleCreateBookmark)
	api.POST("/bookmarks/reorder", handler.handleReorderBookmarks)
	api.PATCH("/bookmarks/:id", handler.handleUpdateBookmark)
	api.DELETE("/bookmarks/:id", handler.handleDeleteBookmark)
	api.GET("/tags", handler.handleListTags)

	return router, nil
}

type httpHandler struct {
	bookmarks     BookmarkService
	accounts      AccountService
	tokens        SessionIssuer
	sessions      SessionVerifier
	secureCookies bool
	logger        *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || containsWildcard(allowedOrigins) {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http_request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Int("bytes", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_ip", c.ClientIP()),
		)
	}
}

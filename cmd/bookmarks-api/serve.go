package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/config"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/logging"
	"github.com/MarcoPoloResearchLab/bookmarks/backend/internal/server"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel, appConfig.LogPretty)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if !appConfig.LogPretty {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := buildApplication(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Warn("failed to release resources", zap.Error(err))
		}
	}()

	tokenIssuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.TokenIssuer,
		TokenTTL:      appConfig.TokenTTL,
	})
	if err != nil {
		return err
	}

	sessionValidator, err := auth.NewSessionValidator(auth.SessionValidatorConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        appConfig.TokenIssuer,
		CookieName:    appConfig.CookieName,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Bookmarks:      app.bookmarks,
		Accounts:       app.users,
		TokenIssuer:    tokenIssuer,
		Sessions:       sessionValidator,
		AllowedOrigins: appConfig.AllowedOrigins,
		SecureCookies:  secureCookies(appConfig.AllowedOrigins),
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("database_driver", appConfig.DatabaseDriver),
			zap.String("summary_provider", appConfig.SummaryProvider))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// secureCookies marks session cookies Secure when every allowed origin is served over https.
func secureCookies(origins []string) bool {
	if len(origins) == 0 {
		return false
	}
	for _, origin := range origins {
		if !strings.HasPrefix(strings.ToLower(origin), "https://") {
			return false
		}
	}
	return true
}

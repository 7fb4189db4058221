package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/radiusfinancial/radius-api/docs" // Swagger docs (generated)
	"github.com/radiusfinancial/radius-api/internal/account"
	"github.com/radiusfinancial/radius-api/internal/app"
	"github.com/radiusfinancial/radius-api/internal/auth"
	"github.com/radiusfinancial/radius-api/internal/config"
	httpServer "github.com/radiusfinancial/radius-api/internal/http"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/ratelimit"
	"github.com/radiusfinancial/radius-api/internal/user"
	"github.com/radiusfinancial/radius-api/internal/web"
	"github.com/radiusfinancial/radius-api/templates"
)

// @title           Radius Accounts API
// @version         1.0
// @description     Account registration, email validation, password reset and profile management.

// @contact.name   API Support
// @contact.email  support@radiusfinancial.com

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

// limiter is the union of the per-IP and per-email limits.
type limiter interface {
	ratelimit.IPLimiter
	auth.EmailCooldown
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_type", cfg.Auth.TokenType,
		"refresh_store", cfg.Auth.RefreshStore,
		"email_transport", cfg.Email.Transport,
		"storage_enabled", cfg.Storage.Enabled(),
		"events_enabled", cfg.Events.Enabled(),
	)

	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	var rateLimiter limiter = ratelimit.Noop{}
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewLimiter(application.Redis, cfg.RateLimit.IPLimit, cfg.RateLimit.IPWindow, cfg.RateLimit.EmailCooldown)
	}

	pages, err := web.NewPages(templates.PagesFS, web.Site{
		Name:        cfg.Site.Name,
		FrontendURL: cfg.Site.FrontendURL,
		StaticURL:   cfg.Site.StaticURL,
		HeaderColor: cfg.Site.HeaderColor,
	}, cfg.Server.IsDevelopment())
	if err != nil {
		return fmt.Errorf("failed to load pages: %w", err)
	}

	static, err := fs.Sub(templates.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("failed to load static files: %w", err)
	}

	var uploads account.ImageStore
	if application.Uploads != nil {
		uploads = application.Uploads
	}
	images := user.NewImageResolver(nil, application.ImageLocator(), cfg.Site.URL, cfg.Site.StaticURL)

	handlers := httpServer.Handlers{
		Auth:     auth.NewHandler(application.Auth, rateLimiter, pages),
		Accounts: account.NewHandler(application.Auth, application.Users, images, uploads, cfg.Site.URL),
		Pages:    pages,
		Static:   static,
	}
	router := httpServer.NewRouter(cfg, handlers, auth.NewMiddleware(application.Auth), rateLimiter, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

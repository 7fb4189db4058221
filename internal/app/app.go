// Package app builds the collaborators shared by the API server and the
// operator CLI from configuration.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/radiusfinancial/radius-api/internal/auth"
	"github.com/radiusfinancial/radius-api/internal/config"
	"github.com/radiusfinancial/radius-api/internal/database"
	"github.com/radiusfinancial/radius-api/internal/email"
	"github.com/radiusfinancial/radius-api/internal/events"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/storage"
	"github.com/radiusfinancial/radius-api/internal/user"
	"github.com/radiusfinancial/radius-api/templates"
)

// App holds the long-lived dependencies. Uploads and ImageLocator are nil
// when object storage is not configured.
type App struct {
	Config        *config.Config
	Logger        *logging.Logger
	DB            *bun.DB
	Redis         *redis.Client
	Users         *user.Repository
	RefreshTokens auth.RefreshTokenRepository
	Auth          *auth.Service
	Uploads       *storage.S3Store
	closers       []func() error
}

// New connects to Postgres and Redis, runs migrations when enabled and
// wires the account service.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("database migrations applied")
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	a.Redis = redisClient
	a.closers = append(a.closers, redisClient.Close)

	a.Users = user.NewRepository(db)

	switch cfg.Auth.RefreshStore {
	case config.RefreshStorePostgres:
		a.RefreshTokens = auth.NewPostgresRefreshStore(db)
	default:
		a.RefreshTokens = auth.NewRedisRefreshStore(redisClient)
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	var publisher events.Publisher
	if cfg.Events.Enabled() {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize event publisher: %w", err)
		}
		publisher = amqpPublisher
		a.closers = append(a.closers, amqpPublisher.Close)
	}

	if cfg.Storage.Enabled() {
		uploads, err := storage.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		a.Uploads = uploads
	}

	sender := email.NewSender(templates.EmailFS, newTransport(cfg.Email, logger), cfg.Email.FromEmail, email.Settings{
		Name:        cfg.Site.Name,
		URL:         cfg.Site.URL,
		FrontendURL: cfg.Site.FrontendURL,
		StaticURL:   cfg.Site.StaticURL,
		HeaderColor: cfg.Site.HeaderColor,
		BGColor:     cfg.Site.BGColor,
		LogoURL:     cfg.Site.LogoURL,
	}, logger)

	a.Auth = auth.NewService(a.Users, a.RefreshTokens, tokens, sender, publisher, logger, auth.Options{
		SiteURL:              cfg.Site.URL,
		FrontendURL:          cfg.Site.FrontendURL,
		AccessTokenDuration:  cfg.Auth.AccessTokenDuration,
		RefreshTokenDuration: cfg.Auth.RefreshTokenDuration,
		RequireValidated:     cfg.Auth.RequireValidated,
		PasswordMinLength:    cfg.Auth.PasswordMinLength,
	})

	return a, nil
}

// ImageLocator returns the upload store as a user.ImageLocator, or nil.
func (a *App) ImageLocator() user.ImageLocator {
	if a.Uploads == nil {
		return nil
	}
	return a.Uploads
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("failed to close resource", "error", err)
		}
	}
	a.closers = nil
}

func newTransport(cfg config.EmailConfig, logger *logging.Logger) email.Transport {
	if cfg.Transport == config.EmailTransportConsole {
		return email.NewConsoleTransport(os.Stdout, logger)
	}
	return email.NewSMTPTransport(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
}

// initRedis connects to Redis and verifies the connection.
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

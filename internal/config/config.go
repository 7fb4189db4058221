package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Email     EmailConfig
	Site      SiteConfig
	Storage   StorageConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string
}

type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Token types accepted by AuthConfig.TokenType.
const (
	TokenTypePaseto = "paseto"
	TokenTypeJWT    = "jwt"
)

// Refresh token stores accepted by AuthConfig.RefreshStore.
const (
	RefreshStoreRedis    = "redis"
	RefreshStorePostgres = "postgres"
)

type AuthConfig struct {
	TokenType string
	// PASETO symmetric key (must be 32 bytes for v4.local)
	PasetoKey            []byte
	JWTSecret            []byte
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
	RefreshStore         string
	// RequireValidated rejects token requests from accounts that have not
	// validated their email address.
	RequireValidated  bool
	PasswordMinLength int
}

// Email transports accepted by EmailConfig.Transport.
const (
	EmailTransportSMTP    = "smtp"
	EmailTransportConsole = "console"
)

type EmailConfig struct {
	Transport    string
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
}

// SiteConfig holds the public addresses and branding used in links,
// emails and pages.
type SiteConfig struct {
	Name        string
	URL         string // this API, used for validation links
	FrontendURL string // web client, used for password reset links
	StaticURL   string
	HeaderColor string
	BGColor     string
	LogoURL     string
}

type StorageConfig struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	PublicURL    string
}

// Enabled reports whether object storage is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

type EventsConfig struct {
	AMQPURL string
	Queue   string
}

// Enabled reports whether account events are published.
func (c *EventsConfig) Enabled() bool {
	return c.AMQPURL != ""
}

type RateLimitConfig struct {
	Enabled       bool
	IPLimit       int
	IPWindow      time.Duration
	EmailCooldown time.Duration
}

// Load reads configuration from environment variables, after loading a .env
// file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:9000"}),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "127.0.0.1"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "radius"),
			Password:    getEnv("DB_PASS", "radius"),
			DBName:      getEnv("DB_NAME", "radius_dev"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenType:            strings.ToLower(getEnv("AUTH_TOKEN_TYPE", TokenTypePaseto)),
			PasetoKey:            []byte(getEnv("PASETO_KEY", "")),
			JWTSecret:            []byte(getEnv("JWT_SECRET", "")),
			AccessTokenDuration:  getDurationEnv("ACCESS_TOKEN_DURATION", 24*time.Hour),
			RefreshTokenDuration: getDurationEnv("REFRESH_TOKEN_DURATION", 30*24*time.Hour),
			RefreshStore:         strings.ToLower(getEnv("REFRESH_TOKEN_STORE", RefreshStoreRedis)),
			RequireValidated:     getBoolEnv("AUTH_REQUIRE_VALIDATED", true),
			PasswordMinLength:    getIntEnv("AUTH_PASSWORD_MIN_LENGTH", 0),
		},
		Email: EmailConfig{
			Transport:    strings.ToLower(getEnv("EMAIL_TRANSPORT", "")),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromEmail:    getEnv("DEFAULT_FROM_EMAIL", "support@radiusfinancial.com"),
		},
		Site: SiteConfig{
			Name:        getEnv("SITE_NAME", "radius"),
			URL:         strings.TrimSuffix(getEnv("SITE_URL", "http://localhost:8080"), "/"),
			FrontendURL: strings.TrimSuffix(getEnv("FRONTEND_URL", "http://localhost:9000"), "/"),
			StaticURL:   getEnv("STATIC_URL", "/static/"),
			HeaderColor: getEnv("EMAIL_HEADER_COLOR", "#03a9f4"),
			BGColor:     getEnv("EMAIL_BG_COLOR", "#f5f5f5"),
			LogoURL:     getEnv("EMAIL_LOGO_URL", ""),
		},
		Storage: StorageConfig{
			Bucket:       getEnv("S3_BUCKET", ""),
			Region:       getEnv("S3_REGION", "us-west-2"),
			BaseEndpoint: getEnv("S3_BASE_ENDPOINT", ""),
			AccessKey:    getEnv("S3_ACCESS_KEY", ""),
			SecretKey:    getEnv("S3_SECRET_KEY", ""),
			PublicURL:    strings.TrimSuffix(getEnv("S3_PUBLIC_URL", ""), "/"),
		},
		Events: EventsConfig{
			AMQPURL: getEnv("AMQP_URL", ""),
			Queue:   getEnv("AMQP_QUEUE", "accounts.events"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getBoolEnv("RATE_LIMIT_ENABLED", true),
			IPLimit:       getIntEnv("RATE_LIMIT_IP_LIMIT", 10),
			IPWindow:      getDurationEnv("RATE_LIMIT_IP_WINDOW", 15*time.Minute),
			EmailCooldown: getDurationEnv("RATE_LIMIT_EMAIL_COOLDOWN", 2*time.Minute),
		},
	}

	if cfg.Email.Transport == "" {
		if cfg.Server.IsDevelopment() {
			cfg.Email.Transport = EmailTransportConsole
		} else {
			cfg.Email.Transport = EmailTransportSMTP
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use.
func (c *Config) Validate() error {
	switch c.Auth.TokenType {
	case TokenTypePaseto:
		if len(c.Auth.PasetoKey) != 32 {
			return fmt.Errorf("PASETO_KEY must be exactly 32 bytes, got %d", len(c.Auth.PasetoKey))
		}
	case TokenTypeJWT:
		if len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.Auth.JWTSecret))
		}
	default:
		return fmt.Errorf("AUTH_TOKEN_TYPE must be %q or %q, got %q", TokenTypePaseto, TokenTypeJWT, c.Auth.TokenType)
	}

	switch c.Auth.RefreshStore {
	case RefreshStoreRedis, RefreshStorePostgres:
	default:
		return fmt.Errorf("REFRESH_TOKEN_STORE must be %q or %q, got %q", RefreshStoreRedis, RefreshStorePostgres, c.Auth.RefreshStore)
	}

	switch c.Email.Transport {
	case EmailTransportConsole:
	case EmailTransportSMTP:
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_TRANSPORT=smtp")
		}
	default:
		return fmt.Errorf("EMAIL_TRANSPORT must be %q or %q, got %q", EmailTransportSMTP, EmailTransportConsole, c.Email.Transport)
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return boolValue
}

// getDurationEnv accepts whole seconds ("900") or a Go duration ("15m").
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return d
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}

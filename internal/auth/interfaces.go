package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/radiusfinancial/radius-api/internal/config"
)

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// NewTokenService returns the implementation selected by cfg.TokenType.
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	switch cfg.TokenType {
	case config.TokenTypePaseto:
		return NewPasetoService(cfg.PasetoKey)
	case config.TokenTypeJWT:
		return NewJWTService(cfg.JWTSecret)
	default:
		return nil, fmt.Errorf("unsupported token type %q", cfg.TokenType)
	}
}

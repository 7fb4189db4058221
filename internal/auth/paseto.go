package auth

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// accessTokenPurpose binds access tokens to their use: it is the PASETO
// implicit assertion and the JWT audience.
const accessTokenPurpose = "radius:access"

// TokenClaims are the claims carried by an access token.
type TokenClaims struct {
	TokenID   string
	UserID    uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// PasetoService issues v4.local access tokens.
type PasetoService struct {
	key paseto.V4SymmetricKey
}

// NewPasetoService requires a 32 byte key.
func NewPasetoService(symmetricKey []byte) (*PasetoService, error) {
	if len(symmetricKey) != 32 {
		return nil, fmt.Errorf("symmetric key must be exactly 32 bytes, got %d", len(symmetricKey))
	}

	key, err := paseto.V4SymmetricKeyFromBytes(symmetricKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create symmetric key: %w", err)
	}
	return &PasetoService{key: key}, nil
}

func (s *PasetoService) CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error) {
	now := time.Now()

	token := paseto.NewToken()
	token.SetJti(uuid.NewString())
	token.SetSubject(userID.String())
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(duration))
	token.SetString("email", email)

	return token.V4Encrypt(s.key, []byte(accessTokenPurpose)), nil
}

// VerifyToken decrypts tokenStr and returns its claims. The parser's
// expiry rule is off so an expired token reports ErrExpiredToken instead of
// a generic rule failure.
func (s *PasetoService) VerifyToken(tokenStr string) (*TokenClaims, error) {
	token, err := paseto.NewParserWithoutExpiryCheck().ParseV4Local(s.key, tokenStr, []byte(accessTokenPurpose))
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims TokenClaims
	subject, err := token.GetSubject()
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.UserID, err = uuid.Parse(subject); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenID, err = token.GetJti(); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Email, err = token.GetString("email"); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt, err = token.GetIssuedAt(); err != nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt, err = token.GetExpiration(); err != nil {
		return nil, ErrInvalidToken
	}

	if time.Now().After(claims.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return &claims, nil
}

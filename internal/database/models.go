package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the accounts_user row.
type User struct {
	bun.BaseModel `bun:"table:accounts_user,alias:u"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Email         string     `bun:"email,notnull,unique"`
	PasswordHash  string     `bun:"password_hash,notnull"`
	FirstName     string     `bun:"first_name,notnull"`
	LastName      string     `bun:"last_name,notnull"`
	PreferredName string     `bun:"preferred_name,notnull"`
	Gender        *string    `bun:"gender"`
	Birthdate     *time.Time `bun:"birthdate,type:date"`
	Phone         string     `bun:"phone,notnull"`
	Image         *string    `bun:"image"`
	IsSuperuser   bool       `bun:"is_superuser,notnull"`
	IsDeveloper   bool       `bun:"is_developer,notnull"`
	DateJoined    time.Time  `bun:"date_joined,nullzero,notnull,default:current_timestamp"`
	LastLogin     *time.Time `bun:"last_login"`
	ValidatedAt   *time.Time `bun:"validated_at"`

	ValidationKey         *uuid.UUID `bun:"validation_key,type:uuid"`
	ValidationKeyPurpose  *string    `bun:"validation_key_purpose"`
	ValidationKeyIssuedAt *time.Time `bun:"validation_key_issued_at"`

	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// RefreshToken is a hashed refresh token row, used when refresh tokens are
// kept in Postgres instead of Redis.
type RefreshToken struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	UserID    uuid.UUID  `bun:"user_id,type:uuid,notnull"`
	TokenHash string     `bun:"token_hash,notnull,unique"`
	ExpiresAt time.Time  `bun:"expires_at,notnull"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	RevokedAt *time.Time `bun:"revoked_at"`
}

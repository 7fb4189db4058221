package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/database"
)

const pqUniqueViolation = "23505"

var (
	ErrNotFound       = apperr.NotFound("").WithCode("user_not_found")
	ErrDuplicateEmail = apperr.ValidationFields(map[string][]string{
		"email": {"user with this email address already exists."},
	}).WithCode("duplicate_email")
)

// Store is the persistence contract for accounts. Key-consuming operations
// are conditional on the key still being present, so a key can be used at
// most once even under concurrent requests.
type Store interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByKey(ctx context.Context, value string, purpose Purpose) (*User, error)
	List(ctx context.Context, filter ListFilter) ([]*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	SetKey(ctx context.Context, id uuid.UUID, key Key) error
	ConsumeValidationKey(ctx context.Context, id, value uuid.UUID, at time.Time) error
	ConsumeResetKey(ctx context.Context, id, value uuid.UUID, passwordHash string) error
	MarkValidated(ctx context.Context, id uuid.UUID, at time.Time) error
	SetImage(ctx context.Context, id uuid.UUID, key string) error
	RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// ListFilter narrows List. A nil ID lists every account.
type ListFilter struct {
	ID *uuid.UUID
}

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, params CreateParams) (*User, error) {
	dbUser := &database.User{
		Email:         NormalizeEmail(params.Email),
		PasswordHash:  params.PasswordHash,
		FirstName:     params.FirstName,
		LastName:      params.LastName,
		PreferredName: params.PreferredName,
		Gender:        genderToDB(params.Gender),
		Birthdate:     params.Birthdate,
		Phone:         params.Phone,
		IsSuperuser:   params.IsSuperuser,
		IsDeveloper:   params.IsDeveloper,
		ValidatedAt:   params.ValidatedAt,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, "failed to get user by email", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("email = ?", NormalizeEmail(email))
	})
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "failed to get user by id", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
}

// GetByKey retrieves the user holding key value for purpose. Values that are
// not UUIDs can never match and report ErrNotFound without a query.
func (r *Repository) GetByKey(ctx context.Context, value string, purpose Purpose) (*User, error) {
	keyValue, err := uuid.Parse(value)
	if err != nil {
		return nil, ErrNotFound
	}

	return r.getOne(ctx, "failed to get user by key", func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("validation_key = ?", keyValue).
			Where("validation_key_purpose = ?", string(purpose))
	})
}

func (r *Repository) getOne(ctx context.Context, op string, where func(*bun.SelectQuery) *bun.SelectQuery) (*User, error) {
	dbUser := new(database.User)
	err := where(r.db.NewSelect().Model(dbUser)).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return mapDBUserToModel(dbUser), nil
}

// List returns accounts ordered by join date.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]*User, error) {
	var dbUsers []database.User
	q := r.db.NewSelect().Model(&dbUsers).OrderExpr("date_joined ASC")
	if filter.ID != nil {
		q = q.Where("id = ?", *filter.ID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}
	return users, nil
}

// UpdateProfile stores the profile and role fields of u.
func (r *Repository) UpdateProfile(ctx context.Context, u *User) error {
	now := time.Now()
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("first_name = ?", u.FirstName).
		Set("last_name = ?", u.LastName).
		Set("preferred_name = ?", u.PreferredName).
		Set("gender = ?", genderToDB(u.Gender)).
		Set("birthdate = ?", u.Birthdate).
		Set("phone = ?", u.Phone).
		Set("is_developer = ?", u.IsDeveloper).
		Set("is_superuser = ?", u.IsSuperuser).
		Set("updated_at = ?", now).
		Where("id = ?", u.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := expectRow(result); err != nil {
		return err
	}

	u.UpdatedAt = now
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRow(result)
}

// SetKey replaces whatever key the user holds.
func (r *Repository) SetKey(ctx context.Context, id uuid.UUID, key Key) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("validation_key = ?", key.Value).
		Set("validation_key_purpose = ?", string(key.Purpose)).
		Set("validation_key_issued_at = ?", key.IssuedAt).
		Set("updated_at = ?", key.IssuedAt).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return expectRow(result)
}

// ConsumeValidationKey clears a validation key and stamps validated_at
// unless it is already set. It reports ErrNotFound when the key was already
// used or replaced.
func (r *Repository) ConsumeValidationKey(ctx context.Context, id, value uuid.UUID, at time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("validation_key = NULL").
		Set("validation_key_purpose = NULL").
		Set("validation_key_issued_at = NULL").
		Set("validated_at = COALESCE(validated_at, ?)", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("validation_key = ?", value).
		Where("validation_key_purpose = ?", string(PurposeValidation)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume validation key: %w", err)
	}
	return expectRow(result)
}

// ConsumeResetKey stores a new password hash and clears the reset key in one
// statement. It reports ErrNotFound when the key was already used or
// replaced.
func (r *Repository) ConsumeResetKey(ctx context.Context, id, value uuid.UUID, passwordHash string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("validation_key = NULL").
		Set("validation_key_purpose = NULL").
		Set("validation_key_issued_at = NULL").
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Where("validation_key = ?", value).
		Where("validation_key_purpose = ?", string(PurposeReset)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume reset key: %w", err)
	}
	return expectRow(result)
}

// MarkValidated stamps validated_at without a key, dropping a pending
// validation key. A pending reset key is kept.
func (r *Repository) MarkValidated(ctx context.Context, id uuid.UUID, at time.Time) error {
	const clearValidationKey = "CASE WHEN validation_key_purpose = 'validation' THEN NULL ELSE %s END"

	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("validation_key = "+fmt.Sprintf(clearValidationKey, "validation_key")).
		Set("validation_key_issued_at = "+fmt.Sprintf(clearValidationKey, "validation_key_issued_at")).
		Set("validation_key_purpose = "+fmt.Sprintf(clearValidationKey, "validation_key_purpose")).
		Set("validated_at = COALESCE(validated_at, ?)", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark user validated: %w", err)
	}
	return expectRow(result)
}

func (r *Repository) SetImage(ctx context.Context, id uuid.UUID, key string) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("image = ?", key).
		Set("updated_at = NOW()").
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set image: %w", err)
	}
	return expectRow(result)
}

func (r *Repository) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("last_login = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

func expectRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func genderToDB(g *Gender) *string {
	if g == nil {
		return nil
	}
	s := string(*g)
	return &s
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	u := &User{
		ID:            dbu.ID,
		Email:         dbu.Email,
		PasswordHash:  dbu.PasswordHash,
		FirstName:     dbu.FirstName,
		LastName:      dbu.LastName,
		PreferredName: dbu.PreferredName,
		Birthdate:     dbu.Birthdate,
		Phone:         dbu.Phone,
		Image:         dbu.Image,
		IsSuperuser:   dbu.IsSuperuser,
		IsDeveloper:   dbu.IsDeveloper,
		DateJoined:    dbu.DateJoined,
		LastLogin:     dbu.LastLogin,
		ValidatedAt:   dbu.ValidatedAt,
		UpdatedAt:     dbu.UpdatedAt,
	}

	if dbu.Gender != nil && *dbu.Gender != "" {
		g := Gender(*dbu.Gender)
		u.Gender = &g
	}

	if dbu.ValidationKey != nil && dbu.ValidationKeyPurpose != nil {
		key := &Key{Purpose: Purpose(*dbu.ValidationKeyPurpose), Value: *dbu.ValidationKey}
		if dbu.ValidationKeyIssuedAt != nil {
			key.IssuedAt = *dbu.ValidationKeyIssuedAt
		}
		u.Key = key
	}

	return u
}

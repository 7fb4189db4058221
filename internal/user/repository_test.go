package user

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/database"
)

var userColumns = []string{
	"id", "email", "password_hash", "first_name", "last_name",
	"validated_at", "validation_key", "validation_key_purpose", "validation_key_issued_at",
}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})

	return NewRepository(database.NewBunDB(sqlDB)), mock
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	key := uuid.New()
	issued := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`SELECT .* FROM "accounts_user" AS "u" WHERE \(id = '` + id.String() + `'\) LIMIT 1`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "pat@example.com", "hash", "Pat", "Doe", nil, key.String(), "validation", issued))

	u, err := repo.GetByID(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, id, u.ID)
	assert.Equal(t, "Pat Doe", u.FullName())
	assert.False(t, u.IsValidated())
	require.NotNil(t, u.Key)
	assert.Equal(t, PurposeValidation, u.Key.Purpose)
	assert.Equal(t, key, u.Key.Value)
	assert.True(t, issued.Equal(u.Key.IssuedAt))
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT .* FROM "accounts_user"`).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepository_GetByKey_FiltersOnPurpose(t *testing.T) {
	repo, mock := newMockRepository(t)
	key := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (validation_key = '` + key.String() + `') AND (validation_key_purpose = 'reset')`)).
		WillReturnRows(sqlmock.NewRows(userColumns))

	_, err := repo.GetByKey(context.Background(), key.String(), PurposeReset)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_GetByKey_MalformedValue(t *testing.T) {
	repo, _ := newMockRepository(t)

	_, err := repo.GetByKey(context.Background(), "not-a-uuid", PurposeValidation)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`INSERT INTO "accounts_user"`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	_, err := repo.Create(context.Background(), CreateParams{Email: "pat@example.com", PasswordHash: "hash"})
	require.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestRepository_Create_NormalizesEmail(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`'Pat@example.com'`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(id.String(), "Pat@example.com"))

	u, err := repo.Create(context.Background(), CreateParams{Email: "Pat@EXAMPLE.com", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Nil(t, u.Key)
}

func TestRepository_ConsumeValidationKey(t *testing.T) {
	id, key := uuid.New(), uuid.New()
	pattern := `UPDATE "accounts_user" AS "u" SET validation_key = NULL, .*validated_at = COALESCE\(validated_at, .*\), .*` +
		regexp.QuoteMeta(`WHERE (id = '`+id.String()+`') AND (validation_key = '`+key.String()+`') AND (validation_key_purpose = 'validation')`)

	t.Run("first use", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.ConsumeValidationKey(context.Background(), id, key, time.Now()))
	})

	t.Run("already used", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.ConsumeValidationKey(context.Background(), id, key, time.Now())
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestRepository_ConsumeResetKey(t *testing.T) {
	repo, mock := newMockRepository(t)
	id, key := uuid.New(), uuid.New()

	mock.ExpectExec(`UPDATE "accounts_user" AS "u" SET password_hash = 'new-hash', validation_key = NULL.*` +
		regexp.QuoteMeta(`(validation_key_purpose = 'reset')`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ConsumeResetKey(context.Background(), id, key, "new-hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_SetKey(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()
	key := NewKey(PurposeReset, time.Now())

	mock.ExpectExec(regexp.QuoteMeta(`validation_key = '` + key.Value.String() + `', validation_key_purpose = 'reset'`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetKey(context.Background(), id, key))
}

func TestRepository_List_ScopedToID(t *testing.T) {
	repo, mock := newMockRepository(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE (id = '` + id.String() + `') ORDER BY date_joined ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).AddRow(id.String(), "pat@example.com"))

	users, err := repo.List(context.Background(), ListFilter{ID: &id})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "pat@example.com", users[0].Email)
}

func TestRepository_Delete_Missing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM "accounts_user"`).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), uuid.New()), ErrNotFound)
}

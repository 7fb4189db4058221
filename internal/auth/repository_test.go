package auth

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/database"
)

func newMockRefreshStore(t *testing.T) (*PostgresRefreshStore, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})

	return NewPostgresRefreshStore(database.NewBunDB(sqlDB)), mock
}

func TestPostgresRefreshStore_GetRefreshToken(t *testing.T) {
	store, mock := newMockRefreshStore(t)
	id, userID := uuid.New(), uuid.New()
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	hash := hashToken("tok")

	mock.ExpectQuery(`SELECT .* FROM "refresh_tokens" AS "rt" WHERE \(token_hash = '` + hash + `'\) LIMIT 1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at"}).
			AddRow(id.String(), userID.String(), hash, expires, time.Now(), nil))

	rt, err := store.GetRefreshToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, userID, rt.UserID)
	assert.True(t, rt.IsValid())
}

func TestPostgresRefreshStore_GetRefreshToken_NotFound(t *testing.T) {
	store, mock := newMockRefreshStore(t)

	mock.ExpectQuery(`SELECT .* FROM "refresh_tokens"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetRefreshToken(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrRefreshTokenNotFound)
}

func TestPostgresRefreshStore_RevokeRefreshToken(t *testing.T) {
	store, mock := newMockRefreshStore(t)
	hash := hashToken("tok")
	pattern := `UPDATE "refresh_tokens" .*SET revoked_at = NOW\(\) WHERE \(token_hash = '` + hash + `'\) AND \(revoked_at IS NULL\)`

	mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.RevokeRefreshToken(context.Background(), "tok"))

	mock.ExpectExec(pattern).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, store.RevokeRefreshToken(context.Background(), "tok"), ErrRefreshTokenNotFound)
}

func TestPostgresRefreshStore_RevokeAllUserTokens(t *testing.T) {
	store, mock := newMockRefreshStore(t)
	userID := uuid.New()

	mock.ExpectExec(`UPDATE "refresh_tokens" .*WHERE \(user_id = '` + userID.String() + `'\) AND \(revoked_at IS NULL\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, store.RevokeAllUserTokens(context.Background(), userID))
}

func TestPostgresRefreshStore_CleanupExpiredTokens(t *testing.T) {
	store, mock := newMockRefreshStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "refresh_tokens" AS "rt" WHERE (expires_at < NOW())`)).
		WillReturnResult(sqlmock.NewResult(0, 5))

	require.NoError(t, store.CleanupExpiredTokens(context.Background()))
}

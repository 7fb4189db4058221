package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoCaller() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := CallerFromContext(r.Context())
		if c.Authenticated {
			w.Header().Set("X-User", c.ID.String())
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestMiddleware_Authenticate(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	u := env.validated(t, "ada@example.com")
	tokens, err := env.service.TokensFor(context.Background(), u)
	require.NoError(t, err)

	mw := NewMiddleware(env.service).Authenticate(echoCaller())

	tests := []struct {
		name   string
		header string
		status int
		user   string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"bearer", "Bearer " + tokens.AccessToken, http.StatusNoContent, u.ID.String()},
		{"token scheme", "Token " + tokens.AccessToken, http.StatusNoContent, u.ID.String()},
		{"malformed header", "Bearer", http.StatusUnauthorized, ""},
		{"unknown scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, rec.Header().Get("X-User"))
		})
	}
}

func TestMiddleware_ExpiredToken(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	token, err := env.tokens.CreateToken(uuid.New(), "ada@example.com", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	NewMiddleware(env.service).Authenticate(echoCaller()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_expired")
}

func TestMiddleware_RequireAuth(t *testing.T) {
	env := newTestEnv(t, defaultOptions())

	rec := httptest.NewRecorder()
	NewMiddleware(env.service).RequireAuth(echoCaller()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication credentials were not provided.")
}

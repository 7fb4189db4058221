package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/email"
	"github.com/radiusfinancial/radius-api/internal/ratelimit"
	"github.com/radiusfinancial/radius-api/internal/user"
)

type fakePage struct{}

func (fakePage) RenderValidation(w http.ResponseWriter, _ *http.Request, status int, u *user.User) {
	w.WriteHeader(status)
	if u != nil {
		_, _ = w.Write([]byte("validated " + u.Email))
		return
	}
	_, _ = w.Write([]byte("invalid link"))
}

type fakeCooldown struct {
	active map[string]bool
}

func (c *fakeCooldown) CheckEmailCooldown(_ context.Context, address string) (bool, error) {
	return c.active[address], nil
}

func (c *fakeCooldown) SetEmailCooldown(_ context.Context, address string) error {
	c.active[address] = true
	return nil
}

func newTestRouter(env *testEnv, cooldown EmailCooldown) http.Handler {
	h := NewHandler(env.service, cooldown, fakePage{})
	r := chi.NewRouter()
	r.Post("/auth/tokens", h.ObtainToken)
	r.Post("/auth/tokens/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.Post("/password-reset-requests/{email}", h.RequestPasswordReset)
	r.Get("/password-resets/{token}", h.LookupPasswordReset)
	r.Post("/password-resets/{token}", h.ConfirmPasswordReset)
	r.Get("/validations/{token}", h.ValidateAccount)
	r.Post("/validation-requests/{email}", h.ResendValidation)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func TestHandler_ObtainToken(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	u := env.validated(t, "ada@example.com")

	rec := do(t, router, http.MethodPost, "/auth/tokens", TokenRequest{Email: "ada@example.com", Password: "correct horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, u.ID, resp.ID)
	assert.NotEmpty(t, resp.AccessToken)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Contains(t, raw, "token")

	rec = do(t, router, http.MethodPost, "/auth/tokens", TokenRequest{Email: "ada@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "non_field_errors")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/tokens", bytes.NewBufferString("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RefreshAndLogout(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	u := env.validated(t, "ada@example.com")
	tokens, err := env.service.TokensFor(context.Background(), u)
	require.NoError(t, err)

	rec := do(t, router, http.MethodPost, "/auth/tokens/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var rotated AuthTokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rotated))

	rec = do(t, router, http.MethodPost, "/auth/tokens/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/logout", RefreshRequest{RefreshToken: rotated.RefreshToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/auth/logout", RefreshRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_RequestPasswordReset_DoesNotRevealAccounts(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	env.validated(t, "ada@example.com")

	known := do(t, router, http.MethodPost, "/password-reset-requests/ada@example.com", nil)
	unknown := do(t, router, http.MethodPost, "/password-reset-requests/nobody@example.com", nil)

	assert.Equal(t, http.StatusAccepted, known.Code)
	assert.Equal(t, http.StatusAccepted, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
	assert.Equal(t, []string{email.TemplateUserResetPassword}, env.mailer.Templates())
}

func TestHandler_RequestPasswordReset_Cooldown(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, &fakeCooldown{active: map[string]bool{}})
	env.validated(t, "ada@example.com")

	assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/password-reset-requests/ada@example.com", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, router, http.MethodPost, "/password-reset-requests/ada@example.com", nil).Code)
	assert.Len(t, env.mailer.Sent(), 1)
}

func TestHandler_PasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	u := env.validated(t, "ada@example.com")
	require.NoError(t, env.service.RequestPasswordReset(context.Background(), u.Email))
	token := env.store.Get(u.ID).Key.Value.String()

	rec := do(t, router, http.MethodGet, "/password-resets/"+token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"email":"ada@example.com"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/password-resets/"+uuid.NewString(), nil).Code)

	rec = do(t, router, http.MethodPost, "/password-resets/"+token, PasswordResetConfirmRequest{Password: "", PasswordConfirm: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing")

	rec = do(t, router, http.MethodPost, "/password-resets/"+token, PasswordResetConfirmRequest{Password: "a", PasswordConfirm: "b"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "mismatch")

	rec = do(t, router, http.MethodPost, "/password-resets/"+token, PasswordResetConfirmRequest{Password: "battery staple", PasswordConfirm: "battery staple"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, router, http.MethodPost, "/password-resets/"+token, PasswordResetConfirmRequest{Password: "battery staple", PasswordConfirm: "battery staple"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ValidateAccount(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	u := env.register(t, "ada@example.com")
	path := "/validations/" + u.Key.Value.String()

	rec := do(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "validated ada@example.com")

	rec = do(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid link")
}

func TestHandler_ResendValidation(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	env.register(t, "ada@example.com")

	assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/validation-requests/ada@example.com", nil).Code)
	assert.Equal(t, http.StatusAccepted, do(t, router, http.MethodPost, "/validation-requests/nobody@example.com", nil).Code)
	assert.Equal(t, []string{email.TemplateUserValidation, email.TemplateUserValidation}, env.mailer.Templates())
}

func TestHandler_EmailPathIsUnescaped(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})
	env.validated(t, "ada@example.com")
	env.register(t, "grace@example.com")

	rec := do(t, router, http.MethodPost, "/password-reset-requests/ada%40example.com", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, router, http.MethodPost, "/validation-requests/grace%40example.com", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, []string{
		email.TemplateUserValidation,
		email.TemplateUserResetPassword,
		email.TemplateUserValidation,
	}, env.mailer.Templates())
}

func TestHandler_EmailPathMalformedEscape(t *testing.T) {
	env := newTestEnv(t, defaultOptions())
	router := newTestRouter(env, ratelimit.Noop{})

	for _, path := range []string{"/password-reset-requests/", "/validation-requests/"} {
		req := httptest.NewRequest(http.MethodPost, path+"ada", nil)
		req.URL.RawPath = path + "ada%zz"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "invalid_email", path)
	}
	assert.Empty(t, env.mailer.Sent())
}

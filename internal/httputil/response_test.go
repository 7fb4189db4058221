package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRespondAppError_Kinds(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", apperr.NotFound(""), http.StatusNotFound, apperr.MessageNotFound},
		{"permission", apperr.PermissionDenied(), http.StatusForbidden, apperr.MessagePermissionDenied},
		{"authentication", apperr.Authentication("", ""), http.StatusUnauthorized, apperr.MessageNotAuthenticated},
		{"validation", apperr.Validation("mismatch", "Passwords do not match."), http.StatusBadRequest, "Passwords do not match."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, []any{tt.message}, body["non_field_errors"])
		})
	}
}

func TestRespondAppError_AuthenticationSetsChallenge(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperr.Authentication("", ""))

	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestRespondAppError_FieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperr.ValidationFields(map[string][]string{"email": {"already exists"}}).WithCode("duplicate_email")
	RespondAppError(rec, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, []any{"already exists"}, body["email"])
	assert.Equal(t, "duplicate_email", body["code"])
	assert.NotContains(t, body, "non_field_errors")
}

func TestRespondAppError_UnknownErrorIsGeneric(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, CodeInternalError, decode(t, rec)["code"])
}

func TestRespondAppError_ConfigurationIsServerError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondAppError(rec, httptest.NewRequest(http.MethodGet, "/", nil), apperr.Configuration("missing template", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "missing template")
}

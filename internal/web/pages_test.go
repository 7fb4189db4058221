package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiusfinancial/radius-api/internal/user"
	"github.com/radiusfinancial/radius-api/templates"
)

func newPages(t *testing.T, docs bool) *Pages {
	t.Helper()
	p, err := NewPages(templates.PagesFS, Site{
		Name:        "radius",
		FrontendURL: "https://app.example.com",
		StaticURL:   "/static/",
		HeaderColor: "#03a9f4",
	}, docs)
	require.NoError(t, err)
	return p
}

func TestLanding(t *testing.T) {
	rec := httptest.NewRecorder()
	newPages(t, true).Landing(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "https://app.example.com")
	assert.Contains(t, rec.Body.String(), "/swagger/index.html")
}

func TestLanding_HidesDocsLinkWhenDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	newPages(t, false).Landing(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotContains(t, rec.Body.String(), "/swagger/")
}

func TestRenderValidation(t *testing.T) {
	p := newPages(t, false)

	rec := httptest.NewRecorder()
	p.RenderValidation(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, &user.User{Email: "ada@example.com", FirstName: "Ada"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your account has been validated")
	assert.Contains(t, rec.Body.String(), "Ada")

	rec = httptest.NewRecorder()
	p.RenderValidation(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusNotFound, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not valid")
}

// Package web renders the server-side HTML pages.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/user"
)

// Site is the branding shared by every page.
type Site struct {
	Name        string
	FrontendURL string
	StaticURL   string
	HeaderColor string
}

type Pages struct {
	landing     *template.Template
	validation  *template.Template
	site        Site
	docsEnabled bool
}

// NewPages parses pages/landing.html and pages/validation.html from fsys.
func NewPages(fsys fs.FS, site Site, docsEnabled bool) (*Pages, error) {
	landing, err := template.ParseFS(fsys, "pages/landing.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse landing page: %w", err)
	}
	validation, err := template.ParseFS(fsys, "pages/validation.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse validation page: %w", err)
	}
	return &Pages{landing: landing, validation: validation, site: site, docsEnabled: docsEnabled}, nil
}

// Landing serves the landing page.
func (p *Pages) Landing(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, p.landing, http.StatusOK, map[string]any{
		"Name":        p.site.Name,
		"FrontendURL": p.site.FrontendURL,
		"StaticURL":   p.site.StaticURL,
		"HeaderColor": p.site.HeaderColor,
		"DocsEnabled": p.docsEnabled,
	})
}

// RenderValidation renders the outcome of a validation link. A nil user
// renders the failure variant.
func (p *Pages) RenderValidation(w http.ResponseWriter, r *http.Request, status int, u *user.User) {
	p.render(w, r, p.validation, status, map[string]any{
		"Name":        p.site.Name,
		"FrontendURL": p.site.FrontendURL,
		"HeaderColor": p.site.HeaderColor,
		"Validated":   u != nil,
		"User":        u,
	})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data any) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to render page", "page", t.Name(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

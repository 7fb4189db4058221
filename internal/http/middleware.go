package http

import (
	"net/http"
	"strings"
)

const (
	apiCSP     = "default-src 'none'"
	pageCSP    = "default-src 'none'; style-src 'unsafe-inline'; img-src 'self'"
	swaggerCSP = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
)

// SecurityHeaders adds security-related headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy(r.URL.Path))

		next.ServeHTTP(w, r)
	})
}

func contentSecurityPolicy(path string) string {
	switch {
	case strings.HasPrefix(path, "/swagger/"):
		return swaggerCSP
	case path == "/", strings.HasPrefix(path, "/validations/"), strings.HasPrefix(path, "/static/"):
		// Server-rendered pages use inline styles and the static favicon.
		return pageCSP
	default:
		return apiCSP
	}
}

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/radiusfinancial/radius-api/internal/access"
	"github.com/radiusfinancial/radius-api/internal/apperr"
	"github.com/radiusfinancial/radius-api/internal/httputil"
	"github.com/radiusfinancial/radius-api/internal/user"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

const UserContextKey ContextKey = "user"

// Authenticator resolves an access token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*user.User, error)
}

// Middleware handles authentication for protected routes
type Middleware struct {
	authenticator Authenticator
}

func NewMiddleware(authenticator Authenticator) *Middleware {
	return &Middleware{authenticator: authenticator}
}

// Authenticate loads the user for a bearer token when one is sent and
// passes anonymous requests through. A malformed or invalid token is
// rejected with 401.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := parseAuthorization(authHeader)
		if !ok {
			httputil.RespondAppError(w, r, apperr.Authentication(httputil.CodeInvalidAuthHeader, "Invalid token header."))
			return
		}

		u, err := m.authenticator.Authenticate(r.Context(), token)
		if err != nil {
			httputil.RespondAppError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// RequireAuth rejects requests that Authenticate left anonymous.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUserFromContext(r.Context()); !ok {
			httputil.RespondAppError(w, r, apperr.Authentication(httputil.CodeMissingAuth, ""))
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// parseAuthorization accepts "Bearer <token>" and "Token <token>".
func parseAuthorization(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return "", false
	}
	switch strings.ToLower(parts[0]) {
	case "bearer", "token":
		return parts[1], true
	}
	return "", false
}

func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, UserContextKey, u)
}

// GetUserFromContext returns the authenticated user, if any.
func GetUserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	return u, ok && u != nil
}

// GetUserIDFromContext extracts the user ID from the request context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	u, ok := GetUserFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return u.ID, true
}

// CallerFromContext returns the access-control caller for the request.
func CallerFromContext(ctx context.Context) access.Caller {
	if u, ok := GetUserFromContext(ctx); ok {
		return access.For(u)
	}
	return access.Anonymous()
}

package http

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/radiusfinancial/radius-api/internal/account"
	"github.com/radiusfinancial/radius-api/internal/auth"
	"github.com/radiusfinancial/radius-api/internal/config"
	"github.com/radiusfinancial/radius-api/internal/httputil"
	"github.com/radiusfinancial/radius-api/internal/logging"
	"github.com/radiusfinancial/radius-api/internal/ratelimit"
	"github.com/radiusfinancial/radius-api/internal/web"
)

// Rate limit purposes. Each public endpoint that sends email or checks
// credentials is counted separately per client IP.
const (
	purposeRegister   = "register"
	purposeLogin      = "login"
	purposeReset      = "password_reset"
	purposeValidation = "validation"
)

// Handlers groups everything the router serves.
type Handlers struct {
	Auth     *auth.Handler
	Accounts *account.Handler
	Pages    *web.Pages
	// Static is served under /static/.
	Static fs.FS
}

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, h Handlers, authMiddleware *auth.Middleware, limiter ratelimit.IPLimiter, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Location"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/", h.Pages.Landing)
	r.Get("/health", handleHealth)

	staticURL := cfg.Site.StaticURL
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, staticURL+"favicon.svg", http.StatusMovedPermanently)
	})
	if h.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(h.Static))))
	}

	// Production builds will not have this route at all
	if cfg.Server.IsDevelopment() {
		logger.Info("swagger UI enabled at /swagger/*")
		r.Get("/swagger/*", httpSwagger.WrapHandler)
	}

	limit := func(purpose string) func(http.Handler) http.Handler {
		return ratelimit.Middleware(limiter, purpose)
	}

	// Credentials for these routes travel in the body or the path, so a
	// stale Authorization header must not reject them.
	r.Route("/auth", func(r chi.Router) {
		r.With(limit(purposeLogin)).Post("/tokens", h.Auth.ObtainToken)
		r.Post("/tokens/refresh", h.Auth.Refresh)
		r.Post("/logout", h.Auth.Logout)
	})

	r.With(limit(purposeReset)).Post("/password-reset-requests/{email}", h.Auth.RequestPasswordReset)
	r.Get("/password-resets/{token}", h.Auth.LookupPasswordReset)
	r.Post("/password-resets/{token}", h.Auth.ConfirmPasswordReset)

	r.Get("/validations/{token}", h.Auth.ValidateAccount)
	r.With(limit(purposeValidation)).Post("/validation-requests/{email}", h.Auth.ResendValidation)

	r.Route("/users", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		h.Accounts.Routes(limit(purposeRegister))(r)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondErrorWithCode(w, "Not found.", httputil.CodeNotFound, http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondError(w, "Method \""+strings.ToUpper(r.Method)+"\" not allowed.", http.StatusMethodNotAllowed)
	})

	return r
}

// handleHealth is a simple health check endpoint
// @Summary      Health check
// @Description  Check if the API is running
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, map[string]string{"status": "api is running"}, http.StatusOK)
}

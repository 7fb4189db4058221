package ratelimit

import (
	"context"
	"net"
	"net/http"

	"github.com/radiusfinancial/radius-api/internal/httputil"
	"github.com/radiusfinancial/radius-api/internal/logging"
)

// IPLimiter is the per-IP half of Limiter.
type IPLimiter interface {
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
}

// Middleware rejects requests with 429 once the client IP has used up its
// window for purpose. Limiter failures are logged and the request passes.
func Middleware(l IPLimiter, purpose string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.GetLoggerFromContext(r.Context())
			ip := ClientIP(r)

			exceeded, err := l.CheckIPRateLimitWithPurpose(r.Context(), ip, purpose)
			if err != nil {
				logger.Error("failed to check IP rate limit", "purpose", purpose, "error", err)
			} else if exceeded {
				logger.Warn("IP rate limit exceeded", "purpose", purpose, "ip", ip)
				httputil.RespondErrorWithCode(w, "Request was throttled.", httputil.CodeTooManyRequests, http.StatusTooManyRequests)
				return
			}

			if err := l.RecordIPRequestWithPurpose(r.Context(), ip, purpose); err != nil {
				logger.Error("failed to record IP request", "purpose", purpose, "error", err)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP returns the host part of RemoteAddr. Proxy headers are resolved
// earlier by chi's RealIP middleware.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package api

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/snipstash/snipstash-server/internal/http/response"
	"github.com/snipstash/snipstash-server/internal/ratelimit"
)

// RateLimitMiddleware creates a middleware that rate limits requests per
// authenticated user, or per client IP for anonymous requests.
// Returns 429 Too Many Requests when limit is exceeded.
func RateLimitMiddleware(limiter *ratelimit.KeyedRateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)

			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded",
					"key", key,
					"path", r.URL.Path,
				)
				response.TooManyRequests(w, "Too many requests. Please try again later.", logger)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if p, err := GetPrincipal(r.Context()); err == nil {
		return "user:" + p.UserID
	}
	return "ip:" + getClientIP(r)
}

// getClientIP returns the client IP from RemoteAddr. RealIP middleware has
// already folded X-Forwarded-For and X-Real-IP into it.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/ratelimit"
)

// RateChecker consumes request budget. *ratelimit.Limiter satisfies it.
type RateChecker interface {
	CheckCaller(ctx context.Context, userID string, ratePerMinute, burst int) (*ratelimit.Result, error)
	CheckIP(ctx context.Context, ip string, ratePerSecond, burst int) (*ratelimit.Result, error)
}

// RateLimitConfig holds configuration for rate limiting middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateChecker
	Enabled bool

	// Mutating routes, per authenticated caller.
	WritePerMinute int
	WriteBurst     int

	// Public routes, per client IP.
	ReadRPS   int
	ReadBurst int
}

func (c RateLimitConfig) active() bool {
	return c.Enabled && c.Limiter != nil
}

// RateLimitCaller limits mutating requests per authenticated caller.
// Must be applied after Auth; anonymous requests fall back to the IP bucket.
func RateLimitCaller(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.active() {
				next.ServeHTTP(w, r)
				return
			}

			subject := auth.UserIDFromContext(r.Context())
			var (
				result *ratelimit.Result
				err    error
			)
			if subject != "" {
				result, err = cfg.Limiter.CheckCaller(r.Context(), subject, cfg.WritePerMinute, cfg.WriteBurst)
			} else {
				subject = getClientIP(r)
				result, err = cfg.Limiter.CheckIP(r.Context(), subject, cfg.ReadRPS, cfg.ReadBurst)
			}
			if err != nil {
				cfg.Logger.Error("rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			setRateLimitHeaders(w, cfg.WritePerMinute, result.Remaining, result.ResetAt)

			if !result.Allowed {
				rejectRateLimited(cfg.Logger, w, r, "write", result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitIP limits public read requests per client IP.
func RateLimitIP(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.active() {
				next.ServeHTTP(w, r)
				return
			}

			ip := getClientIP(r)
			result, err := cfg.Limiter.CheckIP(r.Context(), ip, cfg.ReadRPS, cfg.ReadBurst)
			if err != nil {
				cfg.Logger.Error("IP rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !result.Allowed {
				rejectRateLimited(cfg.Logger, w, r, "read", result.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rejectRateLimited(logger *slog.Logger, w http.ResponseWriter, r *http.Request, kind string, retryAfter time.Duration) {
	seconds := int(retryAfter.Seconds())
	if seconds < 1 {
		seconds = 1
	}

	logger.Warn("rate limit exceeded",
		slog.String("type", kind),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.Int("retry_after_seconds", seconds),
		slog.String("request_id", GetRequestID(r.Context())),
	)

	w.Header().Set("Retry-After", strconv.Itoa(seconds))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		"Rate limit exceeded. Retry after "+strconv.Itoa(seconds)+" seconds.")
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit <= 0 {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}

// getClientIP returns the client address without its port.
// chi's RealIP middleware has already applied X-Forwarded-For / X-Real-IP.
func getClientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.TrimSpace(addr)
}

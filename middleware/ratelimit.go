package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kevinaaaquil/bookclub/apperr"
	"github.com/kevinaaaquil/bookclub/respond"
)

// Counter is a fixed-window counter. *store.Redis satisfies it.
type Counter interface {
	IncrWithExpire(ctx context.Context, key string, window time.Duration) (int64, error)
}

type RateLimitConfig struct {
	Prefix            string
	RequestsPerMinute int
}

// RateLimit limits requests per client IP within a one-minute window. When
// the counter is unavailable requests are let through.
func RateLimit(counter Counter, cfg RateLimitConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || cfg.RequestsPerMinute <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ratelimit:" + cfg.Prefix + ":" + clientIP(r)
			count, err := counter.IncrWithExpire(r.Context(), key, time.Minute)
			if err != nil {
				slog.WarnContext(r.Context(), "rate limit counter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			limit := cfg.RequestsPerMinute
			remaining := limit - int(count)
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if int(count) > limit {
				w.Header().Set("Retry-After", "60")
				respond.Error(w, r, apperr.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP keys on RemoteAddr. It is the socket peer unless chi's RealIP,
// mounted only behind a trusted proxy, has rewritten it.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

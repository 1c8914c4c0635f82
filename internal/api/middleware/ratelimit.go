package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/cache"
	"github.com/kiranshivaraju/feedbackhub/internal/config"
)

// RateLimit provides fixed-window rate limiting via Redis. Requests are
// counted per authenticated user, or per client IP before authentication.
type RateLimit struct {
	cache   cache.Cache
	scope   string
	window  config.Window
	message string
}

// NewRateLimit creates a limiter whose counters are namespaced by scope.
func NewRateLimit(c cache.Cache, scope string, window config.Window, message string) *RateLimit {
	return &RateLimit{cache: c, scope: scope, window: window, message: message}
}

func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := rateLimitSubject(r)
		count, ttl, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(rl.scope, subject), rl.window.Period)
		if err != nil {
			// Fail open.
			slog.Warn("rate limit check failed", "scope", rl.scope, "error", err)
			next.ServeHTTP(w, r)
			return
		}

		remaining := max(rl.window.Limit-int(count), 0)
		resetTime := time.Now().Add(ttl).Unix()

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.window.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))

		if count > int64(rl.window.Limit) {
			slog.Warn("rate limit exceeded", "scope", rl.scope, "subject", subject)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(ttl)))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", rl.message, nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func rateLimitSubject(r *http.Request) string {
	if u, ok := GetUser(r); ok {
		return "user:" + u.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// retryAfterSeconds rounds up so clients never retry inside the window.
func retryAfterSeconds(ttl time.Duration) int {
	return int((ttl + time.Second - 1) / time.Second)
}

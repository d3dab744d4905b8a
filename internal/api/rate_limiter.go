package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	apperrors "github.com/account-monitor/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimiter manages per-client rate limiting for API requests
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex

	limit     rate.Limit
	burstSize int
}

// NewRateLimiter creates a new rate limiter. A non-positive rps disables
// limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 10
	}
	return &RateLimiter{
		limiters:  make(map[string]*rate.Limiter),
		limit:     limit,
		burstSize: burst,
	}
}

// getLimiter returns the rate limiter for a client
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[key]
	rl.mu.RUnlock()

	if exists {
		return limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check in case another goroutine created it
	if limiter, exists := rl.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(rl.limit, rl.burstSize)
	rl.limiters[key] = limiter

	return limiter
}

// clientKey identifies the caller by IP, falling back to the raw address
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware creates a middleware that enforces rate limiting
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.getLimiter(clientKey(r))

			if !limiter.Allow() {
				retryAfter := 1
				if l := float64(limiter.Limit()); l > 0 && l < 1 {
					retryAfter = int(math.Ceil(1 / l))
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				err := apperrors.NewRateLimitError(retryAfter)
				respondError(w, http.StatusTooManyRequests, ErrCodeRateLimitExceeded, err.Message, err.Details)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

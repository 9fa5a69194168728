package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"phpayroll/internal/requestctx"
	"phpayroll/internal/transport/http/api"
	"phpayroll/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type rateLimiter struct {
	limiter *limiter.Limiter
	keyFn   RateLimitKeyFunc
}

// RateLimit applies a fixed-window limit per authenticated user, falling back
// to the client IP. A non-positive limit disables it.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	rl := newRateLimiter("api", limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PayrollMutationRateLimit applies a tighter limit to the batch endpoints
// (run, finalize, reopen) which touch every employee of a period.
func PayrollMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	limit := 0
	if baseLimit > 0 {
		limit = max(baseLimit/4, 1)
	}
	rl := newRateLimiter("payroll-mutation", limit, window, actorOrIPKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPayrollMutation(r) && !rl.enforce(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

// newRateLimiter keeps counters in process memory under prefix. Each limiter
// gets its own prefix so the general and payroll limits never share a bucket.
func newRateLimiter(prefix string, limit int, window time.Duration, keyFn RateLimitKeyFunc) *rateLimiter {
	rl := &rateLimiter{keyFn: keyFn}
	if limit <= 0 {
		return rl
	}
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          "phpayroll:" + prefix,
		CleanUpInterval: limiter.DefaultCleanUpInterval,
	})
	rl.limiter = limiter.New(store, limiter.Rate{Period: window, Limit: int64(limit)})
	return rl
}

func (rl *rateLimiter) enforce(w http.ResponseWriter, r *http.Request) bool {
	if rl.limiter == nil {
		return true
	}
	key := rl.keyFn(r)
	logger := requestctx.Logger(r.Context(), slog.Default())

	state, err := rl.limiter.Get(r.Context(), key)
	if err != nil {
		logger.Warn("rate limit lookup failed", "key", key, "err", err)
		return true
	}
	resetIn := durationSeconds(time.Until(time.Unix(state.Reset, 0)))

	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(state.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(state.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))
	if !state.Reached {
		return true
	}

	w.Header().Set("Retry-After", strconv.Itoa(max(resetIn, 1)))
	logger.Warn("rate limit exceeded",
		"key", key,
		"method", r.Method,
		"path", r.URL.Path,
		"limit", state.Limit,
	)
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

func durationSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return max(int(d.Seconds()), 1)
}

func isPayrollMutation(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if !strings.HasPrefix(path, "/payroll/periods/") {
		return false
	}
	return strings.HasSuffix(path, "/run") || strings.HasSuffix(path, "/finalize") || strings.HasSuffix(path, "/reopen")
}

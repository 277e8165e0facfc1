package middleware

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/pairup/internal/handlers"
	"github.com/HammerMeetNail/pairup/internal/logging"
)

// RateStore counts hits in fixed windows.
type RateStore interface {
	// Hit increments key and returns the new count. The key expires after window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

type redisRateStore struct {
	client *redis.Client
}

func NewRedisRateStore(client *redis.Client) RateStore {
	return &redisRateStore{client: client}
}

func (s *redisRateStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

type RateLimiter struct {
	store   RateStore
	limit   int
	window  time.Duration
	prefix  string
	keyFunc func(r *http.Request) string
	now     func() time.Time
}

// NewRateLimiter limits requests per key. keyFunc may return "" to fall back
// to the client IP. A nil store disables limiting.
func NewRateLimiter(store RateStore, limit int, window time.Duration, prefix string, keyFunc func(r *http.Request) string) *RateLimiter {
	return &RateLimiter{
		store:   store,
		limit:   limit,
		window:  window,
		prefix:  prefix,
		keyFunc: keyFunc,
		now:     time.Now,
	}
}

// UserOrIPKey keys by authenticated user, falling back to the client IP.
func UserOrIPKey(r *http.Request) string {
	if user := handlers.GetUserFromContext(r.Context()); user != nil {
		return "user:" + user.ID.String()
	}
	return ""
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.store == nil {
			next.ServeHTTP(w, r)
			return
		}

		id := ""
		if rl.keyFunc != nil {
			id = rl.keyFunc(r)
		}
		if id == "" {
			id = "ip:" + getClientIP(r)
		}

		now := rl.now()
		windowStart := now.Truncate(rl.window)
		resetAt := windowStart.Add(rl.window)
		key := rl.prefix + id + ":" + strconv.FormatInt(windowStart.Unix(), 10)

		count, err := rl.store.Hit(r.Context(), key, rl.window)
		if err != nil {
			// Fail open; the limiter must not take the API down with Redis.
			logging.FromContext(r.Context()).Warn("Rate limiter unavailable", map[string]interface{}{
				"error": err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}

		remaining := rl.limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if int(count) > rl.limit {
			retryAfter := int(resetAt.Sub(now).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func getClientIP(r *http.Request) string {
	// Take the first hop of X-Forwarded-For (set by the reverse proxy)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"clima/internal/transport/http/api"
	"clima/internal/transport/http/shared"
)

// limiter is a fixed-window counter per caller key. Entries for expired
// windows are swept lazily once the map grows past sweepThreshold.
type limiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]bucket
}

type bucket struct {
	hits      int
	windowEnd time.Time
}

const sweepThreshold = 4096

// RateLimit throttles every request by authenticated user, falling back to
// client IP for anonymous callers. A limit of zero disables throttling.
func RateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	lim := &limiter{limit: limit, window: window, buckets: map[string]bucket{}}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.allow(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SubmissionRateLimit puts a tighter per-actor budget on survey writes and
// period lifecycle changes, the mutations that matter during a campaign.
// Reads share the wider global limit.
func SubmissionRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	lim := &limiter{limit: max(baseLimit/2, 1), window: window, buckets: map[string]bucket{}}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if throttledMutation(r) && !lim.allow(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.limit <= 0 {
		return true
	}

	key := callerKey(r)
	now := time.Now()

	l.mu.Lock()
	b := l.buckets[key]
	if now.After(b.windowEnd) {
		b = bucket{windowEnd: now.Add(l.window)}
	}
	b.hits++
	l.buckets[key] = b
	if len(l.buckets) > sweepThreshold {
		l.sweepLocked(now)
	}
	l.mu.Unlock()

	resetIn := int(time.Until(b.windowEnd).Seconds())
	if resetIn < 1 {
		resetIn = 1
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(l.limit-b.hits, 0)))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetIn))

	if b.hits > l.limit {
		w.Header().Set("Retry-After", strconv.Itoa(resetIn))
		slog.Warn("rate limit exceeded",
			"key", key,
			"method", r.Method,
			"path", r.URL.Path,
			"limit", l.limit,
		)
		api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
		return false
	}
	return true
}

func (l *limiter) sweepLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.After(b.windowEnd) {
			delete(l.buckets, key)
		}
	}
}

func callerKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != "" {
		return "user:" + user.UserID
	}
	return "ip:" + shared.ClientIP(r)
}

// throttledMutation matches the endpoints on the tighter mutation budget:
// survey submissions and period open/close.
func throttledMutation(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1")
	if path == "/survey/submissions" {
		return true
	}
	return strings.HasPrefix(path, "/catalog/periods/") &&
		(strings.HasSuffix(path, "/open") || strings.HasSuffix(path, "/close"))
}

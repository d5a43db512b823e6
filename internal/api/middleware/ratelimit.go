package middleware

import (
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// KeyByIP buckets requests by client address.
func KeyByIP(r *http.Request) string {
	return "ip:" + getClientIP(r)
}

// KeyByUser buckets authenticated requests by user and everything else by IP.
// It must run after Auth.
func KeyByUser(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != 0 {
		return fmt.Sprintf("user:%d", userID)
	}
	return KeyByIP(r)
}

// RateLimiter is a sliding-window counter per key.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	hits      map[string][]time.Time
	lastSweep time.Time
}

func NewRateLimiter(requests int, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	return &RateLimiter{
		limit:  requests,
		window: time.Duration(windowSeconds) * time.Second,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a hit for key when it fits in the window. It returns the
// hits left and the time the oldest counted hit expires.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) > rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	hits := prune(rl.hits[key], cutoff)
	if len(hits) >= rl.limit {
		rl.hits[key] = hits
		return false, 0, hits[0].Add(rl.window)
	}

	hits = append(hits, now)
	rl.hits[key] = hits
	return true, rl.limit - len(hits), hits[0].Add(rl.window)
}

// sweep drops keys with no hits inside the window. Caller holds mu.
func (rl *RateLimiter) sweep(cutoff time.Time) {
	for key, hits := range rl.hits {
		if len(prune(hits, cutoff)) == 0 {
			delete(rl.hits, key)
		}
	}
}

// prune drops hits at or before cutoff. hits is sorted oldest first.
func prune(hits []time.Time, cutoff time.Time) []time.Time {
	i := sort.Search(len(hits), func(i int) bool { return hits[i].After(cutoff) })
	return hits[i:]
}

// Middleware throttles requests per key and sets the X-RateLimit headers.
func (rl *RateLimiter) Middleware(key KeyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, reset := rl.Allow(key(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

			if !allowed {
				retry := int64(reset.Sub(rl.now()).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit throttles per client IP.
func RateLimit(requests int, windowSeconds int) func(http.Handler) http.Handler {
	return NewRateLimiter(requests, windowSeconds).Middleware(KeyByIP)
}

// RateLimitByUser throttles per authenticated user.
func RateLimitByUser(requests int, windowSeconds int) func(http.Handler) http.Handler {
	return NewRateLimiter(requests, windowSeconds).Middleware(KeyByUser)
}

// getClientIP reads RemoteAddr only. Proxy headers are honoured by mounting
// chi's RealIP ahead of the limiter, which rewrites RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

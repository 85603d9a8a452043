package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/quoteboard/internal/auth"
)

// RealIP prefers CF-Connecting-IP, then the first X-Forwarded-For hop, then
// RemoteAddr.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ByIP keys a rule on the client address. Use it on routes that run before a
// session exists.
func ByIP(r *http.Request) string {
	return "ip:" + RealIP(r)
}

// BySubject keys a rule on the session subject, falling back to the client
// address when the request carries no identity.
func BySubject(r *http.Request) string {
	if id := auth.SubjectID(r.Context()); id != 0 {
		return "sub:" + strconv.FormatInt(id, 10)
	}
	return ByIP(r)
}

// Rule is a fixed window budget. Rules with different names never share
// counters, even for the same key.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

type window struct {
	hits    int
	resetAt time.Time
}

// RateLimiter counts hits per rule and key in memory. Counters do not
// survive a restart.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]*window), now: time.Now}
}

// Take records a hit. When the budget is spent it returns false and how long
// until the window resets.
func (rl *RateLimiter) Take(rule Rule, key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	k := rule.Name + "|" + key
	w, ok := rl.windows[k]
	if !ok || !now.Before(w.resetAt) {
		rl.windows[k] = &window{hits: 1, resetAt: now.Add(rule.Window)}
		return true, 0
	}
	w.hits++
	if w.hits > rule.Limit {
		return false, w.resetAt.Sub(now)
	}
	return true, 0
}

// Cleanup forgets windows that have already reset.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for k, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, k)
		}
	}
}

// RateLimit rejects requests over the rule's budget with a JSON 429 and a
// Retry-After header in whole seconds.
func RateLimit(limiter *RateLimiter, rule Rule, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := limiter.Take(rule, keyFunc(r))
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

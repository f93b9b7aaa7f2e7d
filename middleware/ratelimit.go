package middleware

import (
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const retryAfterSeconds = 60

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client address. Idle entries are
// dropped by a background cleanup loop until Stop is called.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	hops     int
	stop     chan struct{}
	once     sync.Once
}

func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		burst:    burst,
		idle:     10 * time.Minute,
		stop:     make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// TrustForwardedHops makes the limiter key on X-Forwarded-For, assuming
// hops trusted proxies each appended one address. Zero, the default, keys
// on the socket address only.
func (rl *RateLimiter) TrustForwardedHops(hops int) {
	rl.mu.Lock()
	rl.hops = hops
	rl.mu.Unlock()
}

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()
	return v.limiter.Allow()
}

// Middleware answers 429 once a client exceeds its budget.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rl.mu.Lock()
			hops := rl.hops
			rl.mu.Unlock()

			ip := clientIP(r, hops)
			if !rl.Allow(ip) {
				log.Printf("Rate limit exceeded for %s %s from %s", r.Method, r.URL.Path, ip)
				w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
				WriteErrorWithDetails(w, http.StatusTooManyRequests, ErrRateLimited, "Too many attempts, try again later",
					map[string]int{"retryAfterSeconds": retryAfterSeconds})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Stop ends the cleanup loop.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, key)
			removed++
		}
	}
	return removed
}

// clientIP returns the socket address, or with hops trusted proxies the
// X-Forwarded-For entry the outermost trusted proxy appended. Entries to
// the left of it are client supplied and ignored.
func clientIP(r *http.Request, hops int) string {
	if hops > 0 {
		if fwd := r.Header.Values("X-Forwarded-For"); len(fwd) > 0 {
			parts := strings.Split(strings.Join(fwd, ","), ",")
			idx := len(parts) - hops
			if idx < 0 {
				idx = 0
			}
			if ip := strings.TrimSpace(parts[idx]); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

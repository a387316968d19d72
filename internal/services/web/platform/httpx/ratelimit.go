package httpx

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const rateLimitIdleTTL = 10 * time.Minute

// RateLimitConfig holds the per-client token bucket settings.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed at once.
	Burst int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit enforces a token bucket per client key and answers 429 with
// Retry-After when a client exceeds it. A zero rate disables limiting.
func RateLimit(cfg RateLimitConfig, clientKey func(*http.Request) string) Middleware {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	var (
		mu        sync.Mutex
		clients   = make(map[string]*clientLimiter)
		lastSweep time.Time
	)
	limiterFor := func(key string, now time.Time) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if now.Sub(lastSweep) > rateLimitIdleTTL {
			for k, cl := range clients {
				if now.Sub(cl.lastSeen) > rateLimitIdleTTL {
					delete(clients, k)
				}
			}
			lastSweep = now
		}
		cl, ok := clients[key]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)}
			clients[key] = cl
		}
		cl.lastSeen = now
		return cl.limiter
	}

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ""
			if clientKey != nil {
				key = clientKey(r)
			}
			now := time.Now()
			reservation := limiterFor(key, now).ReserveN(now, 1)
			if !reservation.OK() {
				_ = WriteJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			if delay := reservation.DelayFrom(now); delay > 0 {
				reservation.CancelAt(now)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				_ = WriteJSONError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

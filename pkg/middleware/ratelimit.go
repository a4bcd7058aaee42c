package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/httputil"
	"github.com/crewdesk/crewdesk/pkg/observability"
)

// RateLimiter throttles requests per client IP over a sliding window.
// The counter backend decides the deployment shape: auth.MemoryCounter
// for a single process, auth.RedisCounter shared across replicas.
type RateLimiter struct {
	counter auth.AttemptCounter
	limit   int64
	window  time.Duration
	log     *observability.Logger
}

// NewRateLimiter creates a limiter allowing limit requests per window
// for each client IP.
func NewRateLimiter(counter auth.AttemptCounter, limit int64, window time.Duration, log *observability.Logger) *RateLimiter {
	return &RateLimiter{counter: counter, limit: limit, window: window, log: log}
}

// Middleware rejects over-limit clients with a bare 429. A counter
// backend failure fails open: dropping traffic because Redis is down
// would turn a cache outage into a full outage.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + clientIP(r)
		count, err := rl.counter.Increment(r.Context(), key, rl.window)
		if err != nil {
			rl.log.WithError(err).Warn("rate limit counter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if count > rl.limit {
			httputil.WriteTooManyRequests(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, set by the fronting
// proxy, over the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

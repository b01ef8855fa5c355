package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/errors"

	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key (client IP or API key)
// and evicts buckets that have gone quiet.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	seen    map[string]time.Time
	rate    rate.Limit
	burst   int
	done    chan struct{}
	logger  *errors.Logger
}

// NewRateLimiter converts a per-minute budget into a token bucket refill
// rate and starts the eviction loop.
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*rate.Limiter),
		seen:    make(map[string]time.Time),
		rate:    rate.Limit(float64(requestsPerMin) / 60.0),
		burst:   burstCapacity,
		done:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictLoop(10 * time.Minute)
	return rl
}

// Allow reports whether the key has a token left. Non-blocking; a key seen
// for the first time gets a fresh bucket.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.bucketFor(key).Allow()
}

func (rl *RateLimiter) bucketFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = rate.NewLimiter(rl.rate, rl.burst)
		rl.buckets[key] = b
	}
	rl.seen[key] = time.Now()
	return b
}

// RetryAfter estimates whole seconds until the next token refill.
func (rl *RateLimiter) RetryAfter() int {
	if rl.rate <= 0 {
		return 1
	}
	if secs := int(math.Ceil(1.0 / float64(rl.rate))); secs > 1 {
		return secs
	}
	return 1
}

// GetStats reports limiter occupancy for the stats endpoint.
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return map[string]any{
		"active_limiters": len(rl.buckets),
		"rate_per_second": float64(rl.rate),
		"rate_per_minute": float64(rl.rate) * 60.0,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) evictLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(interval)
		case <-rl.done:
			return
		}
	}
}

// evict drops buckets not seen within maxAge so one-off clients do not
// accumulate.
func (rl *RateLimiter) evict(maxAge time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	for key, last := range rl.seen {
		if last.Before(cutoff) {
			delete(rl.buckets, key)
			delete(rl.seen, key)
		}
	}

	if rl.logger != nil {
		rl.logger.Debug("Rate limiter cleanup completed", "remaining_limiters", len(rl.buckets))
	}
}

// Close stops the eviction loop. Call on server shutdown.
func (rl *RateLimiter) Close() {
	close(rl.done)
}

func passthroughHandler(next http.HandlerFunc) http.HandlerFunc { return next }

// rateLimit throttles requests by API key or client IP. With rate
// limiting disabled it passes handlers through untouched.
func (s *Server) rateLimit() func(http.HandlerFunc) http.HandlerFunc {
	if cfg := s.RateLimit; cfg == nil || !cfg.Enabled {
		return passthroughHandler
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" {
				next(w, r)
				return
			}

			if !s.RateLimiter.Allow(key) {
				s.Logger.Info("Request rate limited", "key", key, "endpoint", r.URL.Path, "client_ip", clientIP(r))
				w.Header().Set("Retry-After", strconv.Itoa(s.RateLimiter.RetryAfter()))
				writeErrorResponse(w, "Rate limit exceeded. Please try again shortly.", http.StatusTooManyRequests)
				return
			}

			next(w, r)
		}
	}
}

// rateLimitKey buckets by API key when one is presented, otherwise by
// client IP when enabled. An empty key exempts the request.
func rateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if k := apiKeyFromRequest(r); k != "" {
			return "api:" + k
		}
	}

	if byIP {
		return "ip:" + clientIP(r)
	}
	return ""
}

// clientIP resolves the client address, trusting proxy headers before
// falling back to the socket peer.
func clientIP(r *http.Request) string {
	if ip := firstForwardedIP(r.Header.Get("X-Forwarded-For")); ip != "" {
		return ip
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// firstForwardedIP picks the first valid address from a comma-separated
// X-Forwarded-For list.
func firstForwardedIP(list string) string {
	for entry := range strings.SplitSeq(list, ",") {
		candidate := strings.TrimSpace(entry)
		if net.ParseIP(candidate) != nil {
			return candidate
		}
	}
	return ""
}

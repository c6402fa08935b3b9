package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"clowder-server/internal/shared/config"

	"golang.org/x/time/rate"
)

// RateLimiter throttles requests per visitor. Click boosts arrive in
// bursts from every open tab, so the limiter keys on the session when
// one is present and only falls back to the client IP for cookieless
// requests; a shared NAT must not starve everyone behind it.
type RateLimiter struct {
	config   config.RateLimitConfig
	visitors map[string]*rate.Limiter
	mu       sync.RWMutex
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:   cfg,
		visitors: make(map[string]*rate.Limiter),
	}

	if cfg.Enabled {
		go rl.cleanupVisitors()
	}

	return rl
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.visitors[key]
	rl.mu.RUnlock()

	if !exists {
		limiter = rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)

		rl.mu.Lock()
		rl.visitors[key] = limiter
		rl.mu.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		// A full bucket means the visitor has been idle for a while
		for key, limiter := range rl.visitors {
			if limiter.TokensAt(time.Now()) == float64(rl.config.BurstSize) {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		key := visitorKey(r)
		limiter := rl.limiterFor(key)

		logger := slog.With(
			"middleware", "rate_limit",
			"visitor", key,
			"method", r.Method,
			"path", r.URL.Path,
		)

		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded",
				"requests_per_second", rl.config.RequestsPerSecond,
				"burst_size", rl.config.BurstSize,
			)

			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func visitorKey(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if claims, err := ValidateSessionToken(cookie.Value); err == nil {
			return "session:" + claims.SessionID
		}
	}

	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can be comma-separated; first entry is the client
		if i := strings.IndexByte(xff, ','); i != -1 {
			return strings.TrimSpace(xff[:i])
		}
		return xff
	}

	// Strip port from RemoteAddr (e.g. "192.168.1.1:12345" -> "192.168.1.1")
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

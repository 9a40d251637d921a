package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Per-IP rate limiting. Login and the second-factor step get a much tighter
// budget than the rest of the API, since they are the credential-guessing
// surface.
const (
	rateLimitStandardPerMin = 120
	rateLimitStandardBurst  = 120
	rateLimitAuthPerMin     = 10
	rateLimitAuthBurst      = 10
)

type rateLimitTier int

const (
	tierAuth rateLimitTier = iota
	tierStandard
)

func (t rateLimitTier) limiterConfig() (rate.Limit, int) {
	switch t {
	case tierAuth:
		return rate.Limit(float64(rateLimitAuthPerMin) / 60.0), rateLimitAuthBurst
	default:
		return rate.Limit(float64(rateLimitStandardPerMin) / 60.0), rateLimitStandardBurst
	}
}

func (t rateLimitTier) limitHeader() int {
	if t == tierAuth {
		return rateLimitAuthPerMin
	}
	return rateLimitStandardPerMin
}

// apiRateLimiter holds per-IP limiters per tier.
type apiRateLimiter struct {
	mu       sync.Mutex
	auth     map[string]*rate.Limiter
	standard map[string]*rate.Limiter
}

var defaultAPIRateLimiter = &apiRateLimiter{
	auth:     make(map[string]*rate.Limiter),
	standard: make(map[string]*rate.Limiter),
}

// ClientIP extracts the originating client address, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}

func pathTier(path string) rateLimitTier {
	if path == "/api/v1/auth/login" || path == "/api/v1/auth/2fa" {
		return tierAuth
	}
	return tierStandard
}

func (l *apiRateLimiter) limiter(tier rateLimitTier, ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.standard
	if tier == tierAuth {
		m = l.auth
	}
	lim, ok := m[ip]
	if !ok {
		limit, burst := tier.limiterConfig()
		lim = rate.NewLimiter(limit, burst)
		m[ip] = lim
	}
	return lim
}

// RateLimit enforces per-IP request budgets with 429 responses.
func RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := pathTier(r.URL.Path)
		ip := ClientIP(r)
		lim := defaultAPIRateLimiter.limiter(tier, ip)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(tier.limitHeader()))
		if !lim.Allow() {
			w.Header().Set("Retry-After", "60")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

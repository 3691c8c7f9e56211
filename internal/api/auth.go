package api

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"

	"camellia/internal/config"

	"golang.org/x/time/rate"
)

// AdminAuth provides API-key auth and per-key rate limiting for the admin
// endpoints. Public endpoints never pass through it.
type AdminAuth struct {
	cfg      config.APIConfig
	keys     []config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewAdminAuth(cfg config.APIConfig) *AdminAuth {
	return &AdminAuth{cfg: cfg, keys: cfg.Auth.APIKeys}
}

// Authorize validates the admin key and rate limit, writing the error
// response itself. Returns true when the request may proceed.
func (a *AdminAuth) Authorize(w http.ResponseWriter, r *http.Request) bool {
	if !a.cfg.Auth.Enabled {
		return true
	}

	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(header))
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "missing api key")
		return false
	}

	matched := false
	for _, k := range a.keys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(apiKey)) == 1 {
			matched = true
			break
		}
	}
	if !matched {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return false
	}

	if a.cfg.RateLimit.RPS > 0 {
		lim := a.getLimiter(apiKey)
		if !lim.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return false
		}
	}

	return true
}

func (a *AdminAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

// clientIP extracts the caller address for the public booking rate limit.
func clientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

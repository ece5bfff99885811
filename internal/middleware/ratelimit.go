package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/technosupport/incident-analytics/internal/logging"
	"github.com/technosupport/incident-analytics/internal/ratelimit"
)

// Checker is the part of ratelimit.Limiter the middleware needs.
type Checker interface {
	CheckRateLimit(ctx context.Context, key string, config ratelimit.LimitConfig) (*ratelimit.Decision, error)
	HashIP(ip string) string
}

// RateLimitRecorder receives one result per checked request:
// "allowed", "limited" or "error".
type RateLimitRecorder interface {
	RecordRateLimit(result string)
}

type Config struct {
	GlobalIP  ratelimit.LimitConfig            `yaml:"global_ip"`
	Endpoints map[string]ratelimit.LimitConfig `yaml:"endpoints"`
}

type RateLimitMiddleware struct {
	limiter  Checker
	global   func() ratelimit.LimitConfig
	config   Config
	recorder RateLimitRecorder
}

// NewRateLimitMiddleware builds the per-IP limiter. global, when non-nil,
// supersedes c.GlobalIP on every request so reloaded limits apply at once.
func NewRateLimitMiddleware(l Checker, c Config, global func() ratelimit.LimitConfig, rec RateLimitRecorder) *RateLimitMiddleware {
	if global == nil {
		fixed := c.GlobalIP
		global = func() ratelimit.LimitConfig { return fixed }
	}
	return &RateLimitMiddleware{limiter: l, global: global, config: c, recorder: rec}
}

func (m *RateLimitMiddleware) record(result string) {
	if m.recorder != nil {
		m.recorder.RecordRateLimit(result)
	}
}

// ClientIP prefers the first X-Forwarded-For hop.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (m *RateLimitMiddleware) GlobalLimiter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ipHash := m.limiter.HashIP(ClientIP(r))

		if !m.check(w, r, fmt.Sprintf("rl:ip:%s", ipHash), m.global()) {
			return
		}

		path := r.URL.Path
		if limitConfig, found := m.config.Endpoints[path]; found {
			if !m.check(w, r, fmt.Sprintf("rl:ep:%s:%s", ipHash, path), limitConfig) {
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// check reports whether the request may proceed. Redis failures fail open.
func (m *RateLimitMiddleware) check(w http.ResponseWriter, r *http.Request, key string, cfg ratelimit.LimitConfig) bool {
	decision, err := m.limiter.CheckRateLimit(r.Context(), key, cfg)
	if err != nil {
		m.record("error")
		ev := logging.Ctx(r.Context()).Warn().Err(err).Str("key_scope", strings.SplitN(key, ":", 3)[1])
		if errors.Is(err, ratelimit.ErrRedisUnavailable) {
			ev.Msg("[RATELIMIT] redis unavailable, failing open")
		} else {
			ev.Msg("[RATELIMIT] check failed, failing open")
		}
		return true
	}

	writeRateLimitHeaders(w, decision)
	if !decision.Allowed {
		m.record("limited")
		respondTooMany(w)
		return false
	}
	m.record("allowed")
	return true
}

func respondTooMany(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"Too many requests, please try again later"}`))
}

func writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}

package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/incident-analytics/internal/middleware"
	"github.com/technosupport/incident-analytics/internal/ratelimit"
)

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
}

func (c *countingRecorder) RecordRateLimit(result string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[string]int{}
	}
	c.results[result]++
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
	})
}

func TestRateLimit_GlobalIP(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	limiter := ratelimit.NewLimiter(rdb, "salt")
	cfg := middleware.Config{
		GlobalIP: ratelimit.LimitConfig{Rate: 2, Window: time.Minute},
	}
	rec := &countingRecorder{}
	handler := middleware.NewRateLimitMiddleware(limiter, cfg, nil, rec).GlobalLimiter(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	req.RemoteAddr = "1.2.3.4:1234"

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != 200 {
			t.Fatalf("request %d: expected 200, got %d", i+1, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 429 {
		t.Errorf("Expected 429, got %d", w.Code)
	}
	if w.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("Expected remaining 0")
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}
	if rec.results["allowed"] != 2 || rec.results["limited"] != 1 {
		t.Errorf("unexpected recorder counts %v", rec.results)
	}

	// A different client has its own window.
	other := httptest.NewRequest("GET", "/api/v1/alerts", nil)
	other.RemoteAddr = "5.6.7.8:999"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != 200 {
		t.Errorf("Expected 200 for other client, got %d", w.Code)
	}
}

func TestRateLimit_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	if ip := middleware.ClientIP(req); ip != "203.0.113.9" {
		t.Errorf("expected forwarded ip, got %q", ip)
	}
	req.Header.Del("X-Forwarded-For")
	if ip := middleware.ClientIP(req); ip != "10.0.0.1" {
		t.Errorf("expected remote ip, got %q", ip)
	}
}

func TestRateLimit_HotReloadedLimit(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	live := ratelimit.LimitConfig{Rate: 100, Window: time.Minute}
	var mu sync.Mutex
	source := func() ratelimit.LimitConfig {
		mu.Lock()
		defer mu.Unlock()
		return live
	}
	handler := middleware.NewRateLimitMiddleware(ratelimit.NewLimiter(rdb, "s"), middleware.Config{}, source, nil).GlobalLimiter(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "9.9.9.9:1"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Header().Get("X-RateLimit-Limit") != "100" {
		t.Errorf("expected limit 100, got %s", w.Header().Get("X-RateLimit-Limit"))
	}

	mu.Lock()
	live = ratelimit.LimitConfig{Rate: 1, Window: time.Minute}
	mu.Unlock()

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 429 {
		t.Errorf("Expected 429 after limit drop, got %d", w.Code)
	}
}

func TestRateLimit_Endpoint(t *testing.T) {
	mr, _ := miniredis.Run()
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := middleware.Config{
		GlobalIP: ratelimit.LimitConfig{Rate: 100, Window: time.Minute},
		Endpoints: map[string]ratelimit.LimitConfig{
			"/api/v1/incidents/export": {Rate: 1, Window: time.Minute},
		},
	}
	handler := middleware.NewRateLimitMiddleware(ratelimit.NewLimiter(rdb, "s"), cfg, nil, nil).GlobalLimiter(okHandler())

	req := httptest.NewRequest("GET", "/api/v1/incidents/export", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != 429 {
		t.Errorf("Expected endpoint 429, got %d", w.Code)
	}

	// Other paths only see the global limit.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/alerts", nil))
	if w.Code != 200 {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestRateLimit_RedisDown_FailOpen(t *testing.T) {
	mr, _ := miniredis.Run()
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	cfg := middleware.Config{GlobalIP: ratelimit.LimitConfig{Rate: 1, Window: time.Second}}
	rec := &countingRecorder{}
	mw := middleware.NewRateLimitMiddleware(ratelimit.NewLimiter(rdb, "salt"), cfg, nil, rec)

	w := httptest.NewRecorder()
	mw.GlobalLimiter(okHandler()).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != 200 {
		t.Errorf("Expected 200 (Fail Open), got %d", w.Code)
	}
	if rec.results["error"] != 1 {
		t.Errorf("expected one error result, got %v", rec.results)
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(2, 1)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow())

	tb.mu.Lock()
	tb.lastRefill = tb.lastRefill.Add(-2 * time.Second)
	tb.mu.Unlock()
	assert.True(t, tb.Allow())
}

func TestRateLimiterCloseStopsCleanup(t *testing.T) {
	defer goleak.VerifyNone(t)

	rl := NewRateLimiter(1, 1)
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	rl.Close()
	rl.Close()
}

func TestEvictIdle(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()

	rl.Allow("old")
	rl.Allow("new")
	old := rl.getBucket("old")
	old.mu.Lock()
	old.lastRefill = time.Now().Add(-time.Hour)
	old.mu.Unlock()

	rl.evictIdle(10 * time.Minute)

	rl.mu.RLock()
	defer rl.mu.RUnlock()
	assert.NotContains(t, rl.buckets, "old")
	assert.Contains(t, rl.buckets, "new")
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()

	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/acme/sessions/s1/analyze", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitSharesBucketAcrossPorts(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Close()

	h := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/acme/sessions/s1/analyze", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("203.0.113.7:51000"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.7:51001"), "new port, same host")
	assert.Equal(t, http.StatusNoContent, send("198.51.100.2:51000"), "other host has its own bucket")
	assert.Equal(t, http.StatusNoContent, send("[2001:db8::1]:4000"))
	assert.Equal(t, http.StatusTooManyRequests, send("[2001:db8::1]:4001"))
}

func TestClientIP(t *testing.T) {
	tests := []struct{ addr, want string }{
		{"203.0.113.7:51000", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"unix-socket", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.addr
		assert.Equal(t, tt.want, clientIP(req))
	}
}

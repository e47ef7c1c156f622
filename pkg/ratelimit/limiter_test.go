package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	t.Run("allows bursts up to capacity", func(t *testing.T) {
		tb := NewTokenBucket(3, 1.0)

		for i := 0; i < 3; i++ {
			assert.True(t, tb.Allow(), "request %d should pass", i)
		}
		assert.False(t, tb.Allow())
	})

	t.Run("refills over time", func(t *testing.T) {
		tb := NewTokenBucket(1, 100.0)

		require.True(t, tb.Allow())
		require.False(t, tb.Allow())

		time.Sleep(20 * time.Millisecond)
		assert.True(t, tb.Allow())
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 0.01, 0)

	// keys are independent
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	assert.True(t, rl.Allow("b"))
	assert.Equal(t, 2, rl.ActiveBuckets())
}

func TestMiddleware(t *testing.T) {
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	request := func(t *testing.T, handler http.Handler, ip, method, path string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = ip + ":12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	t.Run("per-IP limit isolates clients", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GlobalEnabled = false
		cfg.PerIPCapacity = 2
		cfg.PerIPRefillRate = 0.01
		handler := NewMiddleware(cfg).Handler(okHandler)

		for i := 0; i < 2; i++ {
			rec := request(t, handler, "10.0.0.1", http.MethodGet, "/")
			assert.Equal(t, http.StatusOK, rec.Code)
		}

		rec := request(t, handler, "10.0.0.1", http.MethodGet, "/")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "TOO_MANY_REQUESTS", body["code"])

		// a different client is unaffected
		rec = request(t, handler, "10.0.0.2", http.MethodGet, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("endpoint limit applies on top of the others", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GlobalEnabled = false
		cfg.EndpointLimits["POST /api/auth/login"] = EndpointLimit{Capacity: 1, RefillRate: 0.01}
		handler := NewMiddleware(cfg).Handler(okHandler)

		rec := request(t, handler, "10.0.0.1", http.MethodPost, "/api/auth/login")
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = request(t, handler, "10.0.0.1", http.MethodPost, "/api/auth/login")
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)

		// other paths are not throttled by the endpoint limit
		rec = request(t, handler, "10.0.0.1", http.MethodGet, "/api/auth/profile")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("honors X-Forwarded-For", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.GlobalEnabled = false
		cfg.PerIPCapacity = 1
		cfg.PerIPRefillRate = 0.01
		handler := NewMiddleware(cfg).Handler(okHandler)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})
}

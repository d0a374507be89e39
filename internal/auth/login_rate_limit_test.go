package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRateLimiter_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(3, time.Minute)
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		allowed, _ := limiter.allow("10.0.0.1", now.Add(time.Duration(i)*time.Second))
		require.True(t, allowed)
	}

	allowed, retryAfter := limiter.allow("10.0.0.1", now.Add(3*time.Second))
	assert.False(t, allowed)
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestLoginRateLimiter_WindowSlides(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(2, time.Minute)
	now := time.Now().UTC()

	require.True(t, first(limiter.allow("10.0.0.1", now)))
	require.True(t, first(limiter.allow("10.0.0.1", now.Add(time.Second))))
	require.False(t, first(limiter.allow("10.0.0.1", now.Add(2*time.Second))))

	// Once the first hit ages out, capacity frees up.
	assert.True(t, first(limiter.allow("10.0.0.1", now.Add(time.Minute+time.Second))))
}

func TestLoginRateLimiter_IsolatesClients(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(1, time.Minute)
	now := time.Now().UTC()

	require.True(t, first(limiter.allow("10.0.0.1", now)))
	require.False(t, first(limiter.allow("10.0.0.1", now.Add(time.Second))))

	assert.True(t, first(limiter.allow("10.0.0.2", now.Add(time.Second))))
}

func TestLoginRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	limiter := NewLoginRateLimiter(1, time.Minute)
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	request := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		r.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusOK, request("203.0.113.9").Code)

	limited := request("203.0.113.9")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, request("203.0.113.10").Code)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, r.RemoteAddr, clientIP(r))
}

func first(allowed bool, _ time.Duration) bool {
	return allowed
}

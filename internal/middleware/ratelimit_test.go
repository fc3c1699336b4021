package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Rate Limiter Tests
// =============================================================================

// fakeClock is a settable time source for limiter tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestRateLimiter(t *testing.T, maxAttempts int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(maxAttempts, window)
	rl.now = clock.Now
	t.Cleanup(rl.Close)
	return rl, clock
}

func TestRateLimiter_AllowUpToLimit(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("203.0.113.1"), "request %d should be allowed", i+1)
	}
	assert.False(t, rl.Allow("203.0.113.1"), "fourth request should be blocked")
	assert.True(t, rl.Allow("203.0.113.2"), "other keys have their own budget")
}

func TestRateLimiter_WindowExpiry(t *testing.T) {
	rl, clock := newTestRateLimiter(t, 1, time.Minute)

	require.True(t, rl.Allow("ip"))
	require.False(t, rl.Allow("ip"))
	assert.Equal(t, time.Minute, rl.TimeUntilReset("ip"))

	clock.Advance(40 * time.Second)
	assert.Equal(t, 20*time.Second, rl.TimeUntilReset("ip"))
	assert.False(t, rl.Allow("ip"))

	clock.Advance(20 * time.Second)
	assert.True(t, rl.Allow("ip"), "new window should allow again")
}

func TestRateLimiter_Reset(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 1, time.Minute)

	require.True(t, rl.Allow("ip"))
	require.False(t, rl.Allow("ip"))

	rl.Reset("ip")

	assert.True(t, rl.Allow("ip"))
	assert.Zero(t, rl.TimeUntilReset("never-seen"))
}

func TestRateLimiter_CloseIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	rl.Close()
	assert.NotPanics(t, rl.Close)
}

// =============================================================================
// Rate Limit Middleware Tests
// =============================================================================

func TestLimit_BlocksPostsAfterBudget(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 2, time.Minute)
	wrapped := limit(rl, newTestLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:5555"
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, post().Code)
	assert.Equal(t, http.StatusOK, post().Code)

	rec := post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestLimit_GetsAreNotCounted(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 1, time.Minute)
	wrapped := limit(rl, newTestLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/login", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest("POST", "/auth/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLimit_JSONResponse(t *testing.T) {
	rl, _ := newTestRateLimiter(t, 0, time.Minute)
	wrapped := limit(rl, newTestLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("POST", "/auth/login", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))
	assert.Contains(t, rec.Body.String(), `"code":"rate_limit"`)
}

func TestAuthRateLimiter_SeparateBudgets(t *testing.T) {
	limits := AuthRateLimits{Login: 1, Register: 1, PasswordReset: 1, VerifyCode: 1, Window: time.Minute}
	a := NewAuthRateLimiter(limits, newTestLogger())
	t.Cleanup(a.Close)

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	routes := []http.Handler{
		a.LimitLogin(ok),
		a.LimitRegister(ok),
		a.LimitPasswordReset(ok),
		a.LimitVerifyCode(ok),
	}

	for i, h := range routes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code, "first POST to route %d", i)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code, "second POST to route %d", i)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", nil, "192.0.2.1", "192.0.2.1"},
		{"x-forwarded-for first hop", map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, "10.0.0.2:1", "203.0.113.9"},
		{"x-real-ip", map[string]string{"X-Real-IP": " 203.0.113.10 "}, "10.0.0.2:1", "203.0.113.10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

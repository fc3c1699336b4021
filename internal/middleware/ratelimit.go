package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/handler"
)

// =============================================================================
// Rate Limiter
// =============================================================================

// RateLimiter counts requests per key in fixed windows.
type RateLimiter struct {
	maxAttempts int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*rateLimitEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a rate limiter allowing maxAttempts per window for
// each key. Close stops its cleanup goroutine.
func NewRateLimiter(maxAttempts int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*rateLimitEntry),
		stop:        make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow reports whether a request for key fits in the current window and,
// if so, counts it.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry := rl.entry(key)
	if entry.count >= rl.maxAttempts {
		return false
	}
	entry.count++
	return true
}

// entry returns the live window for key, starting a new one if the previous
// window expired. Callers hold mu.
func (rl *RateLimiter) entry(key string) *rateLimitEntry {
	now := rl.now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) >= rl.window {
		entry = &rateLimitEntry{windowStart: now}
		rl.entries[key] = entry
	}
	return entry
}

// Reset clears the count for a key.
func (rl *RateLimiter) Reset(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, key)
}

// TimeUntilReset returns how long until the window for key ends.
func (rl *RateLimiter) TimeUntilReset(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, ok := rl.entries[key]
	if !ok {
		return 0
	}
	remaining := rl.window - rl.now().Sub(entry.windowStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// cleanup periodically removes expired entries.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.entries {
				if now.Sub(entry.windowStart) >= rl.window {
					delete(rl.entries, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// =============================================================================
// Rate Limit Middleware
// =============================================================================

// limit returns middleware that rejects requests over the limiter's budget
// with 429 and a Retry-After header. Only POSTs count; the pages themselves
// can always be viewed.
func limit(limiter *RateLimiter, logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		clientIP := getClientIP(r)
		if !limiter.Allow(clientIP) {
			logger.Warn("rate limit exceeded",
				"ip", clientIP,
				"path", r.URL.Path,
			)

			retryAfter := int(limiter.TimeUntilReset(clientIP).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			handler.ErrorResponse(w, r, logger, domain.RateLimit(r.URL.Path))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Auth Rate Limiter (combined limiter for auth endpoints)
// =============================================================================

// AuthRateLimits sets the per-IP budget of each auth action.
type AuthRateLimits struct {
	Login         int
	Register      int
	PasswordReset int
	VerifyCode    int
	Window        time.Duration
}

// DefaultAuthRateLimits returns the production budgets. VerifyCode bounds
// guesses at the four-digit reset code.
func DefaultAuthRateLimits() AuthRateLimits {
	return AuthRateLimits{
		Login:         10,
		Register:      5,
		PasswordReset: 5,
		VerifyCode:    10,
		Window:        15 * time.Minute,
	}
}

// AuthRateLimiter provides rate limiting for authentication endpoints
// with different limits for different actions.
type AuthRateLimiter struct {
	login         *RateLimiter
	register      *RateLimiter
	passwordReset *RateLimiter
	verifyCode    *RateLimiter
	logger        *slog.Logger
}

// NewAuthRateLimiter creates one limiter per auth action.
func NewAuthRateLimiter(limits AuthRateLimits, logger *slog.Logger) *AuthRateLimiter {
	return &AuthRateLimiter{
		login:         NewRateLimiter(limits.Login, limits.Window),
		register:      NewRateLimiter(limits.Register, limits.Window),
		passwordReset: NewRateLimiter(limits.PasswordReset, limits.Window),
		verifyCode:    NewRateLimiter(limits.VerifyCode, limits.Window),
		logger:        logger,
	}
}

// LimitLogin returns middleware for rate limiting login attempts.
func (a *AuthRateLimiter) LimitLogin(next http.Handler) http.Handler {
	return limit(a.login, a.logger, next)
}

// LimitRegister returns middleware for rate limiting registration attempts.
func (a *AuthRateLimiter) LimitRegister(next http.Handler) http.Handler {
	return limit(a.register, a.logger, next)
}

// LimitPasswordReset returns middleware for rate limiting reset code requests.
func (a *AuthRateLimiter) LimitPasswordReset(next http.Handler) http.Handler {
	return limit(a.passwordReset, a.logger, next)
}

// LimitVerifyCode returns middleware for rate limiting reset code guesses.
func (a *AuthRateLimiter) LimitVerifyCode(next http.Handler) http.Handler {
	return limit(a.verifyCode, a.logger, next)
}

// Close stops every limiter.
func (a *AuthRateLimiter) Close() {
	a.login.Close()
	a.register.Close()
	a.passwordReset.Close()
	a.verifyCode.Close()
}

// =============================================================================
// Helpers
// =============================================================================

// getClientIP extracts the client IP from the request, considering proxy headers.
func getClientIP(r *http.Request) string {
	// X-Forwarded-For: client, proxy1, proxy2
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if clientIP := strings.TrimSpace(first); clientIP != "" {
			return clientIP
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr might not have a port
		return r.RemoteAddr
	}
	return ip
}

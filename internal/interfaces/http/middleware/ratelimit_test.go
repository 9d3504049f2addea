package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newClockedLimiter(limit int, window time.Duration, burst int) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window, burst)
	rl.now = clock.Now
	return rl, clock
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows a burst then blocks", func(t *testing.T) {
		limiter, _ := newClockedLimiter(3, time.Minute, 0)
		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("client"), "request %d", i+1)
		}
		assert.False(t, limiter.Allow("client"))
	})

	t.Run("separate buckets per client", func(t *testing.T) {
		limiter, _ := newClockedLimiter(1, time.Minute, 0)
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		limiter, clock := newClockedLimiter(2, time.Minute, 0)
		assert.True(t, limiter.Allow("c"))
		assert.True(t, limiter.Allow("c"))
		assert.False(t, limiter.Allow("c"))

		clock.Advance(30 * time.Second)
		assert.True(t, limiter.Allow("c"))
		assert.False(t, limiter.Allow("c"))
	})

	t.Run("remaining reports whole tokens", func(t *testing.T) {
		limiter, _ := newClockedLimiter(5, time.Minute, 0)
		assert.Equal(t, 5, limiter.Remaining("d"))
		limiter.Allow("d")
		assert.Equal(t, 4, limiter.Remaining("d"))
	})

	t.Run("idle clients are evicted", func(t *testing.T) {
		limiter, clock := newClockedLimiter(1, time.Second, 0)
		limiter.Allow("e")
		clock.Advance(time.Minute)
		limiter.evictIdle()
		limiter.mu.Lock()
		_, ok := limiter.clients["e"]
		limiter.mu.Unlock()
		assert.False(t, ok)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter, _ := newClockedLimiter(2, time.Minute, 0)

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/api/v1/cart", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
		req.RemoteAddr = "203.0.113.7:4711"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := send()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send().Code)

	w = send()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
	assert.Equal(t, dto.ErrCodeRateLimited, decodeError(t, w).Code)
}

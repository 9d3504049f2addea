package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	window  time.Duration
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows limit requests per window for each key, with bursts
// up to burst. A burst below one falls back to limit.
func NewRateLimiter(limit int, window time.Duration, burst int) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	if burst <= 0 {
		burst = limit
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   limit,
		window:  window,
		burst:   burst,
		idleTTL: window * 2,
		now:     time.Now,
	}
}

// Run evicts idle clients until ctx is cancelled
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.idleTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.idleTTL)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.clients[key]
	if !ok {
		every := rate.Every(rl.window / time.Duration(rl.limit))
		c = &client{limiter: rate.NewLimiter(every, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = rl.now()
	return c.limiter
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.get(key).AllowN(rl.now(), 1)
}

// Remaining returns the whole tokens left for the key
func (rl *RateLimiter) Remaining(key string) int {
	tokens := rl.get(key).TokensAt(rl.now())
	if tokens < 0 {
		return 0
	}
	return int(math.Floor(tokens))
}

// Limit returns the configured requests per window
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// RateLimit returns a rate limiting middleware keyed by client IP
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey returns a rate limiting middleware with custom key extractor
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		if !limiter.Allow(key) {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(limiter.window.Seconds()/float64(limiter.limit)))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.Fail(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				c.GetString("request_id"),
			))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))

		c.Next()
	}
}

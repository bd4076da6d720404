package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter manages token buckets per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	idle     time.Duration
	now      func() time.Time
}

// NewIPRateLimiter creates a new rate limiter.
// r is the rate of events (requests per second).
// b is the burst size.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		visitors: make(map[string]*visitor),
		r:        r,
		b:        b,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
}

// GetLimiter returns the rate limiter for the given IP.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	v, exists := i.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(i.r, i.b)}
		i.visitors[ip] = v
	}
	v.lastSeen = i.now()
	return v.limiter
}

// Sweep drops limiters for clients idle longer than the idle window.
func (i *IPRateLimiter) Sweep() int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := i.now().Add(-i.idle)
	removed := 0
	for ip, v := range i.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(i.visitors, ip)
			removed++
		}
	}
	return removed
}

// Run sweeps idle limiters every interval until ctx is cancelled.
func (i *IPRateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			i.Sweep()
		}
	}
}

// Middleware rejects requests from clients that exhausted their bucket.
func (i *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.GetLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests",
			})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware creates a Gin middleware for rate limiting.
func RateLimitMiddleware(limit rate.Limit, burst int) gin.HandlerFunc {
	return NewIPRateLimiter(limit, burst).Middleware()
}

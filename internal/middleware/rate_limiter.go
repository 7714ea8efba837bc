package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// window tracks request counts for one client within a fixed window.
type window struct {
	count int
	end   time.Time
}

// Limiter is a per-IP fixed-window request limiter.
type Limiter struct {
	limit   int
	period  time.Duration
	message string

	mu      sync.Mutex
	clients map[string]*window
	now     func() time.Time
}

func NewLimiter(limit int, period time.Duration, message string) *Limiter {
	return &Limiter{
		limit:   limit,
		period:  period,
		message: message,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one request from key and reports whether it is within the limit.
// The second result is when the current window ends.
func (l *Limiter) Allow(key string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[key]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(l.period)}
		l.clients[key] = w
	}
	w.count++
	return w.count <= l.limit, w.end
}

// Middleware rejects requests over the limit with 429.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, end := l.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", end.UTC().Format(http.TimeFormat))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.message))
			return
		}
		c.Next()
	}
}

// Purge drops expired windows every interval until ctx is done, so IPs that
// never return do not accumulate.
func (l *Limiter) Purge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			purged := 0
			for k, w := range l.clients {
				if now.After(w.end) {
					delete(l.clients, k)
					purged++
				}
			}
			remaining := len(l.clients)
			l.mu.Unlock()
			if purged > 0 {
				log.Debug().Int("purged", purged).Int("remaining", remaining).Msg("rate limiter entries purged")
			}
		}
	}
}

// LoginRateLimiter limits login attempts to 20 per minute per IP.
func LoginRateLimiter() *Limiter {
	return NewLimiter(20, time.Minute, "too many login attempts, try again in a minute")
}

// APIRateLimiter is the general limiter applied to every authenticated route.
func APIRateLimiter(limit int, period time.Duration) *Limiter {
	return NewLimiter(limit, period, "too many requests, try again shortly")
}

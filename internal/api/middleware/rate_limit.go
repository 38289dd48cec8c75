package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"github.com/argus-sec/argus/internal/metrics"
)

// RateLimiter tracks fixed-window request counters per client address. The
// window boundary is derived from wall-clock time, so counters reset at the
// same instant for every client.
type RateLimiter struct {
	store *cache.Cache
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		store: cache.New(time.Hour, 10*time.Minute),
	}
}

// Limit enforces at most max requests per client per window for the named
// route group. Requests over the limit are rejected with 429.
func (rl *RateLimiter) Limit(name string, max int, window time.Duration) gin.HandlerFunc {
	if window < time.Second {
		window = time.Second
	}
	return func(c *gin.Context) {
		bucket := time.Now().UnixNano() / window.Nanoseconds()
		key := fmt.Sprintf("%s:%s:%d", name, c.ClientIP(), bucket)

		if err := rl.store.Add(key, 1, window); err != nil {
			count, incErr := rl.store.IncrementInt(key, 1)
			if incErr == nil && count > max {
				metrics.IncRateLimited()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"error": "Too many requests, please try again later",
				})
				return
			}
		}

		c.Next()
	}
}

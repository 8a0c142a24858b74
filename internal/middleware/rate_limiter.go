package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	clientLimiterTTL     = 10 * time.Minute
	clientLimiterCleanup = 15 * time.Minute
)

type RateLimiterConfig struct {
	Rate  rate.Limit
	Burst int
}

// RateLimiter keeps one token bucket per client IP. Idle clients expire so
// the map does not grow with every address ever seen.
type RateLimiter struct {
	config  RateLimiterConfig
	clients *gocache.Cache
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		config:  config,
		clients: gocache.New(clientLimiterTTL, clientLimiterCleanup),
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	if cached, ok := rl.clients.Get(clientIP); ok {
		return cached.(*rate.Limiter).Allow()
	}

	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	if err := rl.clients.Add(clientIP, limiter, gocache.DefaultExpiration); err != nil {
		// Lost the race to a concurrent request from the same client.
		if cached, ok := rl.clients.Get(clientIP); ok {
			limiter = cached.(*rate.Limiter)
		}
	}
	return limiter.Allow()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

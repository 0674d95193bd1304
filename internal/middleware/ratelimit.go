package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/tso500-cohort-explorer/internal/domain"
)

// maxTrackedClients bounds the per-client limiter table
const maxTrackedClients = 4096

// RateLimiter hands out one token bucket per client IP
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	clients *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter creates a limiter allowing rps requests per second with burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	clients, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &RateLimiter{limit: rate.Limit(rps), burst: burst, clients: clients}
}

// Allow consumes a token for client
func (r *RateLimiter) Allow(client string) bool {
	r.mu.Lock()
	limiter, ok := r.clients.Get(client)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.clients.Add(client, limiter)
	}
	r.mu.Unlock()
	return limiter.Allow()
}

// RateLimit rejects requests over the per-client budget with 429
func RateLimit(cfg domain.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
				domain.ErrCodeRateLimit, "Too many requests", "", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}

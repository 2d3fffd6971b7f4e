package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/quizmaster/profile-kit/internal/handler"
)

type RateLimiterConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

// RateLimiter keeps one token bucket per client IP. Buckets of clients that
// went quiet expire after IdleTTL.
type RateLimiter struct {
	limit   rate.Limit
	burst   int
	clients *cache.Cache
	mu      sync.Mutex
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	ttl := config.IdleTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(config.RequestsPerSecond),
		burst:   burst,
		clients: cache.New(ttl, ttl),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.clients.Get(key); ok {
		// refresh expiry on use
		rl.clients.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.SetDefault(key, l)
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		r := rl.limiter(c.ClientIP()).Reserve()
		if delay := r.Delay(); !r.OK() || delay > 0 {
			r.Cancel()
			retry := 60
			if r.OK() {
				retry = int(math.Ceil(delay.Seconds()))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, handler.NewErrorResponse("rate limit exceeded"))
			return
		}
		c.Next()
	}
}

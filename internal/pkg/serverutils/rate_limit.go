package serverutils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per client IP. Idle buckets are
// dropped after ten minutes.
type RateLimiter struct {
	rps     rate.Limit
	burst   int
	clients *cache.Cache
}

// NewRateLimiter creates a limiter. reqPerSec is the sustained rate, burst is
// the maximum burst size. A non-positive rate disables limiting.
func NewRateLimiter(reqPerSec float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rps:     rate.Limit(reqPerSec),
		burst:   burst,
		clients: cache.New(10*time.Minute, 10*time.Minute),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if x, found := rl.clients.Get(key); found {
		rl.clients.SetDefault(key, x)
		return x.(*rate.Limiter)
	}
	l := rate.NewLimiter(rl.rps, rl.burst)
	if err := rl.clients.Add(key, l, cache.DefaultExpiration); err != nil {
		// lost a race with another request from the same client
		if x, found := rl.clients.Get(key); found {
			return x.(*rate.Limiter)
		}
	}
	return l
}

// Middleware rejects requests over the client's budget with 429.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if rl.rps <= 0 {
			return ctx.Next()
		}
		if !rl.limiter(ctx.IP()).Allow() {
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return ctx.Next()
	}
}

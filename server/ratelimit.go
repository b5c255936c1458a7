package server

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu     sync.Mutex
	bucket map[string]*rate.Limiter
	rate   rate.Limit
	burst  int
}

func newRateLimiter(r rate.Limit, burst int) *rateLimiter {
	return &rateLimiter{
		bucket: make(map[string]*rate.Limiter),
		rate:   r,
		burst:  burst,
	}
}

func (r *rateLimiter) limiterFor(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.bucket[ip]
	if !ok {
		l = rate.NewLimiter(r.rate, r.burst)
		r.bucket[ip] = l
	}
	return l
}

func (s *Server) rateLimit(c *fiber.Ctx) error {
	ip := c.IP()
	if !s.limiter.limiterFor(ip).Allow() {
		s.log.Warn("too many requests", zap.String("ip", ip))
		return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
	}
	return c.Next()
}

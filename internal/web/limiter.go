package web

import (
	"sync"

	"aforo/internal/config"

	"golang.org/x/time/rate"
)

// rateLimiter keeps one token bucket per client key. RPS 0 disables
// limiting entirely.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.ServerRateLimit
}

func newRateLimiter(cfg config.ServerRateLimit) *rateLimiter {
	return &rateLimiter{cfg: cfg}
}

func (l *rateLimiter) allow(key string) bool {
	if l.cfg.RPS <= 0 {
		return true
	}
	return l.getLimiter(key).Allow()
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/galtspace/geo-explorer/internal/logger"
)

// Config holds the per-host request budget
type Config struct {
	// RequestsPerSecond is the sustained rate for each host, 0 disables limiting
	RequestsPerSecond float64
	// Burst is the number of requests a host may take at once, at least 1
	Burst int
}

// Limiter throttles outgoing requests per host
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit_limiter.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Wait blocks until a request to host is allowed or ctx is done
	Wait(ctx context.Context, host string) error
}

type limiter struct {
	config   Config
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiter creates a per-host limiter. A zero rate yields a limiter that never blocks.
func NewLimiter(cfg Config) (Limiter, error) {
	if cfg.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests per second must not be negative: %v", cfg.RequestsPerSecond)
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &limiter{config: cfg, limiters: make(map[string]*rate.Limiter)}, nil
}

func (l *limiter) Wait(ctx context.Context, host string) error {
	if l.config.RequestsPerSecond == 0 {
		return ctx.Err()
	}
	lim := l.get(host)
	if lim.Tokens() < 1 {
		logger.DebugCtx(ctx, "Throttling request", zap.String("host", host))
	}
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	return nil
}

func (l *limiter) get(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
		l.limiters[host] = lim
	}
	return lim
}

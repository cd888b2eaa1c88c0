// Package resilience wraps calls to rate-limited remote APIs with a client-side
// rate limiter and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/researchbot/researchbot/internal/logger"
)

// ErrCircuitOpen is returned while the breaker rejects calls after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Defaults used when Config fields are zero.
const (
	DefaultRequestsPerMinute = 60
	DefaultMinRequests       = 3
	DefaultFailureRatio      = 0.6
	DefaultOpenTimeout       = 60 * time.Second
	DefaultInterval          = 10 * time.Second
)

// Config configures a Guard.
type Config struct {
	// Name identifies the guarded API in logs and errors.
	Name string

	// RequestsPerMinute is the sustained request budget. 10% is held back as headroom.
	RequestsPerMinute int

	// MinRequests is how many calls must be seen before the breaker may trip.
	MinRequests uint32

	// FailureRatio trips the breaker when failures/requests reaches it.
	FailureRatio float64

	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// Guard rate-limits calls and stops sending them while the remote side is failing.
type Guard struct {
	name    string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a guard.
func New(cfg Config) *Guard {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = DefaultMinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = DefaultFailureRatio
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultOpenTimeout
	}

	limit := rate.Limit(float64(cfg.RequestsPerMinute) * 0.9 / 60.0)
	burst := max(1, cfg.RequestsPerMinute/10)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    DefaultInterval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
		// A caller giving up is not a remote failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Guard{
		name:    cfg.Name,
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker,
	}
}

// Do waits for a rate-limit token and runs fn through the circuit breaker.
func Do[T any](ctx context.Context, g *Guard, fn func() (T, error)) (T, error) {
	var zero T

	if err := g.limiter.Wait(ctx); err != nil {
		return zero, fmt.Errorf("%s: rate limit wait: %w", g.name, err)
	}

	out, err := g.breaker.Execute(func() (any, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, fmt.Errorf("%s: %w", g.name, ErrCircuitOpen)
	}
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// State reports the breaker state ("closed", "half-open" or "open").
func (g *Guard) State() string {
	return g.breaker.State().String()
}

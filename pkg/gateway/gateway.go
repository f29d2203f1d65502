package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrSaturated is returned when no call slot frees up before the deadline.
	ErrSaturated = errors.New("external call capacity exhausted")

	// ErrCircuitOpen is returned while the breaker rejects calls to a failing collaborator.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTimeout is returned when the call does not finish within the configured timeout.
	ErrTimeout = errors.New("external call timed out")
)

// Config tunes one gateway.
type Config struct {
	// MaxInFlight bounds concurrent calls. Default: 8
	MaxInFlight int64

	// Timeout applies to every call, including the wait for a slot. Default: 10s
	Timeout time.Duration

	// MaxFailures is the number of consecutive failures that opens the breaker. Default: 5
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open before probing. Default: 30s
	OpenTimeout time.Duration

	// HalfOpenMaxRequests is the number of probe calls allowed when half-open. Default: 1
	HalfOpenMaxRequests uint32
}

func (c Config) withDefaults() Config {
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxFailures == 0 {
		c.MaxFailures = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxRequests == 0 {
		c.HalfOpenMaxRequests = 1
	}
	return c
}

// Gateway is the boundary every blocking collaborator call goes through:
// a weighted semaphore caps concurrency, each call runs under a timeout, and
// a circuit breaker stops hammering a collaborator that keeps failing.
type Gateway struct {
	name    string
	cfg     Config
	sem     *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func New(name string, cfg Config, logger *zap.Logger) *Gateway {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		name:   name,
		cfg:    cfg,
		sem:    semaphore.NewWeighted(cfg.MaxInFlight),
		logger: logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// the caller giving up is not the collaborator's fault
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed",
				zap.String("gateway", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return g
}

func (g *Gateway) Name() string {
	return g.name
}

// State reports the breaker state ("closed", "half-open", "open").
func (g *Gateway) State() string {
	return g.breaker.State().String()
}

// Do runs fn through the gateway. fn receives a context carrying the call
// deadline and must honor it.
func (g *Gateway) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Call is Do for functions that return a value.
func Call[T any](ctx context.Context, g *Gateway, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if err := g.sem.Acquire(callCtx, 1); err != nil {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%s: %w", g.name, ErrSaturated)
	}
	defer g.sem.Release(1)

	out, err := g.breaker.Execute(func() (interface{}, error) {
		v, err := fn(callCtx)
		if err == nil && callCtx.Err() != nil && ctx.Err() == nil {
			// finished, but only after the deadline passed
			return nil, ErrTimeout
		}
		if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, ErrTimeout
		}
		return v, err
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return zero, fmt.Errorf("%s: %w", g.name, ErrCircuitOpen)
		case errors.Is(err, ErrTimeout):
			return zero, fmt.Errorf("%s: %w after %s", g.name, ErrTimeout, g.cfg.Timeout)
		}
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

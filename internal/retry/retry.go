// Package retry wraps a single provider call with a bounded retry policy that
// reacts to rate limiting, timeouts and network failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"time"

	"github.com/seantiz/frontier/internal/provider"
)

// Policy defaults.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 5 * time.Second
	DefaultMaxDelay    = 80 * time.Second
	DefaultJitter      = 0.2
)

// Exhaustion reasons.
const (
	ReasonRateLimited = "rate_limited"
	ReasonTimeout     = "timeout"
	ReasonNetwork     = "network"
	ReasonUnavailable = "unavailable"
)

// Policy bounds a retry loop. Exponential delays start at BaseDelay, double per
// attempt, gain up to Jitter (fraction) extra, and never exceed MaxDelay.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64
}

// DefaultPolicy returns five attempts with 5s..80s exponential backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
	}
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Reason   string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", e.Reason, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Observer is notified before each backoff sleep.
type Observer func(attempt int, delay time.Duration, err *provider.Error)

// Controller executes calls under a Policy. It is safe for concurrent use.
type Controller struct {
	policy   Policy
	sleep    func(ctx context.Context, d time.Duration) error
	random   func() float64
	observer Observer
}

// Option configures a Controller.
type Option func(*Controller)

// WithSleep replaces the backoff sleep, e.g. to record delays in tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Controller) {
		c.sleep = fn
	}
}

// WithRandom replaces the jitter source; fn must return values in [0,1).
func WithRandom(fn func() float64) Option {
	return func(c *Controller) {
		c.random = fn
	}
}

// WithObserver registers a callback invoked before every retry.
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// New creates a controller. Zero policy fields take the defaults.
func New(p Policy, opts ...Option) *Controller {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(d.MaxDelay, p.BaseDelay)
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}

	c := &Controller{
		policy: p,
		sleep:  sleepContext,
		random: rand.Float64,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Policy returns the effective policy.
func (c *Controller) Policy() Policy {
	return c.policy
}

// Execute runs call until it succeeds, fails terminally, or exhausts the
// attempt budget. Terminal failures are returned unchanged after one attempt;
// exhaustion returns *ExhaustedError. A cancelled ctx aborts a pending backoff.
func (c *Controller) Execute(ctx context.Context, call func(context.Context) (provider.Response, error)) (provider.Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := call(ctx)
		if err == nil {
			return resp, nil
		}

		perr, ok := provider.AsError(err)
		if !ok || !perr.Retryable() {
			return provider.Response{}, err
		}
		if attempt >= c.policy.MaxAttempts {
			return provider.Response{}, &ExhaustedError{Reason: reason(perr), Attempts: attempt, Last: err}
		}

		delay := c.Delay(attempt, perr)
		if c.observer != nil {
			c.observer(attempt, delay, perr)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return provider.Response{}, fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
		}
	}
}

// Delay picks the wait before the next attempt: an explicit Retry-After first,
// then a body hint, then exponential backoff with jitter. Server-supplied
// waits are clamped to [BaseDelay, MaxDelay].
func (c *Controller) Delay(attempt int, perr *provider.Error) time.Duration {
	if perr.RetryAfter > 0 {
		return c.clamp(perr.RetryAfter)
	}
	if perr.Hint > 0 {
		return c.clamp(perr.Hint)
	}
	return c.backoff(attempt)
}

func (c *Controller) clamp(d time.Duration) time.Duration {
	return min(max(d, c.policy.BaseDelay), c.policy.MaxDelay)
}

func (c *Controller) backoff(attempt int) time.Duration {
	d := c.policy.BaseDelay
	for i := 1; i < attempt && d < c.policy.MaxDelay; i++ {
		d *= 2
	}
	d += time.Duration(c.random() * c.policy.Jitter * float64(d))
	return min(d, c.policy.MaxDelay)
}

func reason(perr *provider.Error) string {
	if perr.Class == provider.ClassRateLimited {
		return ReasonRateLimited
	}
	if perr.StatusCode != 0 {
		return ReasonUnavailable
	}
	var ne net.Error
	if errors.Is(perr, context.DeadlineExceeded) || (errors.As(perr, &ne) && ne.Timeout()) {
		return ReasonTimeout
	}
	return ReasonNetwork
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package retry_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seantiz/frontier/internal/provider"
	"github.com/seantiz/frontier/internal/retry"
)

// recorder captures backoff delays instead of sleeping.
type recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

// failing returns a call that fails with err for the first n attempts, then succeeds.
func failing(n int, err error) (func(context.Context) (provider.Response, error), *int) {
	calls := 0
	return func(context.Context) (provider.Response, error) {
		calls++
		if calls <= n {
			return provider.Response{}, err
		}
		return provider.Response{Answer: "ok"}, nil
	}, &calls
}

func rateLimited() *provider.Error {
	return &provider.Error{Provider: "openai", StatusCode: 429, Class: provider.ClassRateLimited}
}

func TestRateLimitExhaustsAfterFiveAttempts(t *testing.T) {
	rec := &recorder{}
	c := retry.New(retry.DefaultPolicy(), retry.WithSleep(rec.sleep))

	call, calls := failing(100, rateLimited())
	_, err := c.Execute(context.Background(), call)

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, retry.ReasonRateLimited, ex.Reason)
	assert.Equal(t, 5, ex.Attempts)
	assert.Equal(t, 5, *calls)
	require.Len(t, rec.delays, 4)
	for _, d := range rec.delays {
		assert.GreaterOrEqual(t, d, 5*time.Second)
		assert.LessOrEqual(t, d, 80*time.Second)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	c := retry.New(retry.Policy{MaxAttempts: 8, BaseDelay: 5 * time.Second, MaxDelay: 80 * time.Second},
		retry.WithRandom(func() float64 { return 0 }))

	want := []time.Duration{5, 10, 20, 40, 80, 80, 80}
	for i, w := range want {
		assert.Equal(t, w*time.Second, c.Delay(i+1, rateLimited()), "attempt %d", i+1)
	}
}

func TestBackoffJitterStaysInBounds(t *testing.T) {
	c := retry.New(retry.DefaultPolicy(), retry.WithRandom(func() float64 { return 0.999 }))

	assert.InDelta(t, float64(6*time.Second), float64(c.Delay(1, rateLimited())), float64(10*time.Millisecond))
	assert.Equal(t, 80*time.Second, c.Delay(5, rateLimited()))
}

func TestRetryAfterTakesPriority(t *testing.T) {
	c := retry.New(retry.DefaultPolicy())

	perr := rateLimited()
	perr.RetryAfter = 12 * time.Second
	perr.Hint = 30 * time.Second
	assert.Equal(t, 12*time.Second, c.Delay(3, perr))

	perr.RetryAfter = 0
	assert.Equal(t, 30*time.Second, c.Delay(3, perr))

	perr.Hint = 10 * time.Minute
	assert.Equal(t, 80*time.Second, c.Delay(1, perr))
}

func TestServerDelaysNeverUndercutBaseDelay(t *testing.T) {
	c := retry.New(retry.DefaultPolicy())

	perr := rateLimited()
	perr.RetryAfter = time.Second
	assert.Equal(t, 5*time.Second, c.Delay(1, perr))

	perr.RetryAfter = 0
	perr.Hint = 200 * time.Millisecond
	assert.Equal(t, 5*time.Second, c.Delay(4, perr))
}

func TestShortRetryAfterStillWaitsBaseDelay(t *testing.T) {
	rec := &recorder{}
	c := retry.New(retry.DefaultPolicy(), retry.WithSleep(rec.sleep))

	perr := rateLimited()
	perr.RetryAfter = 500 * time.Millisecond
	call, calls := failing(2, perr)
	resp, err := c.Execute(context.Background(), call)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, rec.delays)
}

func TestTerminalErrorNotRetried(t *testing.T) {
	rec := &recorder{}
	c := retry.New(retry.DefaultPolicy(), retry.WithSleep(rec.sleep))

	terminal := &provider.Error{Provider: "anthropic", StatusCode: 401, Class: provider.ClassTerminal}
	call, calls := failing(100, terminal)
	_, err := c.Execute(context.Background(), call)

	assert.Same(t, terminal, err)
	assert.Equal(t, 1, *calls)
	assert.Empty(t, rec.delays)
}

func TestUnclassifiedErrorNotRetried(t *testing.T) {
	c := retry.New(retry.DefaultPolicy(), retry.WithSleep((&recorder{}).sleep))

	call, calls := failing(100, errors.New("boom"))
	_, err := c.Execute(context.Background(), call)

	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, *calls)
}

func TestNetworkErrorsUseSameSchedule(t *testing.T) {
	rec := &recorder{}
	c := retry.New(retry.DefaultPolicy(), retry.WithSleep(rec.sleep), retry.WithRandom(func() float64 { return 0 }))

	netErr := &provider.Error{Provider: "gemini", Class: provider.ClassTransient, Err: errors.New("connection refused")}
	call, _ := failing(100, netErr)
	_, err := c.Execute(context.Background(), call)

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, retry.ReasonNetwork, ex.Reason)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 20 * time.Second, 40 * time.Second}, rec.delays)
}

func TestTimeoutReason(t *testing.T) {
	c := retry.New(retry.Policy{MaxAttempts: 2}, retry.WithSleep((&recorder{}).sleep))

	timeout := &provider.Error{Provider: "openai", Class: provider.ClassTransient, Err: context.DeadlineExceeded}
	call, _ := failing(100, timeout)
	_, err := c.Execute(context.Background(), call)

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, retry.ReasonTimeout, ex.Reason)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestUnavailableReason(t *testing.T) {
	c := retry.New(retry.Policy{MaxAttempts: 2}, retry.WithSleep((&recorder{}).sleep))

	call, _ := failing(100, &provider.Error{Provider: "anthropic", StatusCode: 529, Class: provider.ClassTransient})
	_, err := c.Execute(context.Background(), call)

	var ex *retry.ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, retry.ReasonUnavailable, ex.Reason)
}

func TestSucceedsAfterTransientFailures(t *testing.T) {
	rec := &recorder{}
	var observed []int
	c := retry.New(retry.DefaultPolicy(),
		retry.WithSleep(rec.sleep),
		retry.WithObserver(func(attempt int, _ time.Duration, perr *provider.Error) {
			observed = append(observed, attempt)
			assert.Equal(t, "openai", perr.Provider)
		}))

	call, calls := failing(2, rateLimited())
	resp, err := c.Execute(context.Background(), call)

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Answer)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []int{1, 2}, observed)
}

func TestContextCancelAbortsBackoff(t *testing.T) {
	c := retry.New(retry.Policy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	call, calls := failing(100, rateLimited())

	done := make(chan error, 1)
	go func() {
		_, err := c.Execute(ctx, call)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, *calls)
	case <-time.After(2 * time.Second):
		t.Fatal("Execute did not return after cancel")
	}
}

func TestNewFillsDefaults(t *testing.T) {
	p := retry.New(retry.Policy{}).Policy()
	assert.Equal(t, retry.DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, retry.DefaultBaseDelay, p.BaseDelay)
	assert.Equal(t, retry.DefaultMaxDelay, p.MaxDelay)
	assert.Zero(t, p.Jitter)
}

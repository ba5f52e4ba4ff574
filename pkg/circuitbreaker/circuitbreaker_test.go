package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	cb := New(cfg)
	cb.now = clock.Now
	return cb, clock
}

func fail(context.Context) error { return errBackend }
func succeed(context.Context) error { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Second})
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errBackend)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Second})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.NoError(t, cb.Execute(ctx, succeed))
	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: time.Second, MaxRequestsHalfOpen: 2})
	ctx := context.Background()

	var transitions []State
	cb.OnStateChange(func(_, to State) { transitions = append(transitions, to) })

	_ = cb.Execute(ctx, fail)
	clock.Advance(1500 * time.Millisecond)

	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	clock.Advance(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, fail), errBackend)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CancelledContext(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, cb.Execute(ctx, succeed), context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
}

func TestDo(t *testing.T) {
	cb := New(DefaultConfig())
	n, err := Do(context.Background(), cb, func(context.Context) (int64, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	_, err = Do(context.Background(), cb, func(context.Context) (int64, error) { return 0, errBackend })
	assert.ErrorIs(t, err, errBackend)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Hour})
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(context.Background(), succeed))
}

package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDownstream = errors.New("connection refused")

func testConfig() Config {
	return Config{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 3,
	}
}

func trip(t *testing.T, cb *CircuitBreaker, failures int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < failures; i++ {
		err := cb.Execute(ctx, func() error { return errDownstream })
		require.ErrorIs(t, err, errDownstream)
	}
}

func TestExecute_PassThrough(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())

	err := cb.Execute(ctx, func() error { return errDownstream })
	assert.ErrorIs(t, err, errDownstream)
	assert.Equal(t, StateClosed, cb.State(), "a single failure must not trip")
}

func TestExecute_TripsOnConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())
	ctx := context.Background()

	trip(t, cb, 3)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "open breaker must not invoke the call")
}

func TestExecute_SuccessResetsFailureStreak(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())
	ctx := context.Background()

	trip(t, cb, 2)
	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	trip(t, cb, 2)

	assert.Equal(t, StateClosed, cb.State(), "streak broken by a success must not trip")
}

func TestHalfOpen_RecoveryCloses(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())
	ctx := context.Background()

	trip(t, cb, 3)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpen_FailureReopens(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())
	ctx := context.Background()

	trip(t, cb, 3)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(ctx, func() error { return errDownstream })
	require.ErrorIs(t, err, errDownstream)
	assert.Equal(t, StateOpen, cb.State())
}

func TestHalfOpen_ProbeQuota(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())
	ctx := context.Background()

	trip(t, cb, 3)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	// One in-flight probe holds the only slot; a concurrent second
	// probe is refused.
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cb.Execute(ctx, func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(release)
	<-done
}

func TestExecute_PanicCountsAsFailure(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 1
	cb := NewCircuitBreaker("redis_pub", cfg)

	assert.Panics(t, func() {
		_ = cb.Execute(context.Background(), func() error { panic("boom") })
	})
	assert.Equal(t, StateOpen, cb.State())
}

func TestReset(t *testing.T) {
	cb := NewCircuitBreaker("redis_pub", testConfig())

	trip(t, cb, 3)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}

func TestManager_BreakersAreIndependent(t *testing.T) {
	m := NewManager(testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = m.Execute(ctx, "redis_pub", func() error { return errDownstream })
	}

	assert.Equal(t, StateOpen, m.State("redis_pub"))
	assert.Equal(t, StateClosed, m.State("push_pub"))

	err := m.Execute(ctx, "push_pub", func() error { return nil })
	assert.NoError(t, err, "sibling breaker must keep flowing")
}

func TestManager_SameInstancePerName(t *testing.T) {
	m := NewManager(testConfig())
	assert.Same(t, m.GetBreaker("redis_pub"), m.GetBreaker("redis_pub"))
}

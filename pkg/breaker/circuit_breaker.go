// Package breaker implements a three-state circuit breaker. The
// notification fan-out wraps each broadcast publisher in one so a dead
// transport stops eating latency while the polling fallback delivers.
package breaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrOpenState the breaker is open and calls are refused
	ErrOpenState = errors.New("circuit breaker is open")
	// ErrTooManyRequests the half-open probe quota is spent
	ErrTooManyRequests = errors.New("circuit breaker probe limit reached")
)

// State is the breaker's position.
type State int

const (
	// StateClosed calls flow normally
	StateClosed State = iota
	// StateOpen calls are refused until the cooldown elapses
	StateOpen
	// StateHalfOpen a bounded number of probe calls test recovery
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Config tunes a breaker. Zero values fall back to defaults.
type Config struct {
	// MaxRequests caps concurrent probes while half-open
	MaxRequests uint32
	// Interval is the closed-state window after which counts reset
	Interval time.Duration
	// Timeout is the open-state cooldown before probing resumes
	Timeout time.Duration
	// FailureThreshold consecutive failures trip the breaker
	FailureThreshold uint32
}

func (c Config) withDefaults() Config {
	if c.MaxRequests == 0 {
		c.MaxRequests = 1
	}
	if c.Interval == 0 {
		c.Interval = time.Minute
	}
	if c.Timeout == 0 {
		c.Timeout = time.Minute
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	return c
}

// Counts are the outcomes observed in the current generation.
type Counts struct {
	Requests             uint32
	Successes            uint32
	Failures             uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// CircuitBreaker guards one downstream. A generation is one counting
// window; outcomes reported against a stale generation are discarded so
// a slow in-flight call cannot poison a fresh window.
type CircuitBreaker struct {
	name string
	cfg  Config

	mu     sync.Mutex
	state  State
	gen    uint64
	counts Counts
	expiry time.Time
}

// NewCircuitBreaker creates a breaker named for its downstream.
func NewCircuitBreaker(name string, cfg Config) *CircuitBreaker {
	cb := &CircuitBreaker{name: name, cfg: cfg.withDefaults()}
	cb.nextGeneration(time.Now())
	return cb
}

// Execute runs fn when the breaker admits the call. A panic inside fn
// counts as a failure and re-propagates.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.settle(gen, false)
			panic(r)
		}
	}()

	err = fn()
	cb.settle(gen, err == nil)
	return err
}

// State reports the current position, honoring cooldown expiry.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	state, _ := cb.tick(time.Now())
	return state
}

// Counts returns the current generation's outcome counters.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset force-closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.nextGeneration(time.Now())
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, gen := cb.tick(time.Now())
	switch {
	case state == StateOpen:
		return gen, ErrOpenState
	case state == StateHalfOpen && cb.counts.Requests >= cb.cfg.MaxRequests:
		return gen, ErrTooManyRequests
	}

	cb.counts.Requests++
	return gen, nil
}

func (cb *CircuitBreaker) settle(gen uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := time.Now()
	state, current := cb.tick(now)
	if current != gen {
		return
	}

	if success {
		cb.counts.Successes++
		cb.counts.ConsecutiveSuccesses++
		cb.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.cfg.MaxRequests {
			cb.transition(StateClosed, now)
		}
		return
	}

	cb.counts.Failures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0
	if state == StateHalfOpen || cb.counts.ConsecutiveFailures >= cb.cfg.FailureThreshold {
		cb.transition(StateOpen, now)
	}
}

// tick applies time-based transitions and returns the effective state.
func (cb *CircuitBreaker) tick(now time.Time) (State, uint64) {
	switch cb.state {
	case StateClosed:
		if !cb.expiry.IsZero() && cb.expiry.Before(now) {
			cb.nextGeneration(now)
		}
	case StateOpen:
		if cb.expiry.Before(now) {
			cb.transition(StateHalfOpen, now)
		}
	}
	return cb.state, cb.gen
}

func (cb *CircuitBreaker) transition(state State, now time.Time) {
	if cb.state == state {
		return
	}
	cb.state = state
	cb.nextGeneration(now)
}

func (cb *CircuitBreaker) nextGeneration(now time.Time) {
	cb.gen++
	cb.counts = Counts{}

	switch cb.state {
	case StateClosed:
		cb.expiry = now.Add(cb.cfg.Interval)
	case StateOpen:
		cb.expiry = now.Add(cb.cfg.Timeout)
	default:
		cb.expiry = time.Time{}
	}
}

// Manager holds one breaker per named downstream, created on first use
// with a shared config.
type Manager struct {
	breakers sync.Map
	cfg      Config
}

// NewManager creates a breaker manager.
func NewManager(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// GetBreaker returns the named breaker, creating it if needed.
func (m *Manager) GetBreaker(name string) *CircuitBreaker {
	if cb, ok := m.breakers.Load(name); ok {
		return cb.(*CircuitBreaker)
	}
	cb := NewCircuitBreaker(name, m.cfg)
	if actual, loaded := m.breakers.LoadOrStore(name, cb); loaded {
		return actual.(*CircuitBreaker)
	}
	return cb
}

// Execute runs fn behind the named breaker.
func (m *Manager) Execute(ctx context.Context, name string, fn func() error) error {
	return m.GetBreaker(name).Execute(ctx, fn)
}

// State reports the named breaker's position.
func (m *Manager) State(name string) State {
	return m.GetBreaker(name).State()
}

package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonwraymond/bastion/observe"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the dependency recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures before
	// opening the circuit.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the circuit.
	// Default: 2
	SuccessThreshold int

	// Timeout is the maximum duration for a single call. A call that
	// exceeds it counts as a failure with ErrTimeout.
	// Default: 30 seconds. Set negative to disable.
	Timeout time.Duration

	// ResetTimeout is how long an open circuit waits before allowing a
	// half-open probe.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests caps in-flight probes while half-open.
	// Default: SuccessThreshold
	HalfOpenMaxRequests int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to State)

	// IsFailure determines if an error should count as a failure.
	// Default: all non-nil errors are failures.
	IsFailure func(err error) bool

	// Logger receives a structured record of every state transition.
	Logger observe.Logger
}

// CircuitBreaker gates calls to an unreliable dependency through a
// three-state machine. All state and counters are updated under one
// mutex so transitions are linearizable: two concurrent calls cannot
// both push the failure count past the threshold and trigger the open
// transition twice.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	logger observe.Logger

	mu             sync.Mutex
	state          State
	failures       int
	successes      int
	lastFailure    time.Time
	lastSuccess    time.Time
	totalCalls     int64
	rejectedCalls  int64
	halfOpenActive int
}

// CircuitBreakerMetrics is a point-in-time snapshot of breaker state.
// Read-only for callers; only the owning breaker mutates the counters.
type CircuitBreakerMetrics struct {
	State         State
	Failures      int
	Successes     int
	LastFailure   time.Time
	LastSuccess   time.Time
	TotalCalls    int64
	RejectedCalls int64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	// Apply defaults
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = config.SuccessThreshold
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	logger := config.Logger
	if logger == nil {
		logger = observe.NopLogger()
	}

	return &CircuitBreaker{
		config: config,
		logger: logger.WithComponent("circuit_breaker"),
		state:  StateClosed,
	}
}

// Execute runs the operation through the circuit breaker, racing it
// against the configured call timeout.
//
// The timeout race cancels the context passed to the operation but does
// not wait for the operation goroutine to observe the cancellation; an
// operation that ignores its context may still be running after
// Execute returns ErrTimeout.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}

	err := cb.run(ctx, op)
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) run(ctx context.Context, op func(context.Context) error) error {
	if cb.config.Timeout < 0 {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, cb.config.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerMetrics{
		State:         cb.currentStateLocked(),
		Failures:      cb.failures,
		Successes:     cb.successes,
		LastFailure:   cb.lastFailure,
		LastSuccess:   cb.lastSuccess,
		TotalCalls:    cb.totalCalls,
		RejectedCalls: cb.rejectedCalls,
	}
}

// Reset forces the breaker to closed with zero counters, for operator
// intervention.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenActive = 0

	if oldState != StateClosed {
		cb.notifyLocked(oldState, StateClosed)
	}
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalCalls++
	state := cb.currentStateLocked()

	switch state {
	case StateOpen:
		cb.rejectedCalls++
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenActive >= cb.config.HalfOpenMaxRequests {
			cb.rejectedCalls++
			return ErrCircuitOpen
		}
		cb.halfOpenActive++
	}

	return nil
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	oldState := cb.state

	if cb.halfOpenActive > 0 {
		cb.halfOpenActive--
	}

	switch cb.state {
	case StateClosed:
		if isFailure {
			cb.failures++
			cb.lastFailure = time.Now()
			if cb.failures >= cb.config.FailureThreshold {
				cb.state = StateOpen
			}
		} else {
			cb.failures = 0
			cb.lastSuccess = time.Now()
		}

	case StateHalfOpen:
		if isFailure {
			// Failed probe: reopen and restart the reset clock.
			cb.lastFailure = time.Now()
			cb.successes = 0
			cb.state = StateOpen
		} else {
			cb.lastSuccess = time.Now()
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.state = StateClosed
				cb.failures = 0
				cb.successes = 0
			}
		}
	}

	if oldState != cb.state {
		cb.notifyLocked(oldState, cb.state)
	}
}

// currentStateLocked lazily moves an open circuit to half-open once the
// reset timeout has elapsed. Callers must hold cb.mu.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.config.ResetTimeout {
		cb.state = StateHalfOpen
		cb.successes = 0
		cb.halfOpenActive = 0
		cb.notifyLocked(StateOpen, StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) notifyLocked(from, to State) {
	cb.logger.Info(context.Background(), "circuit state changed",
		observe.Field{Key: "from", Value: from.String()},
		observe.Field{Key: "to", Value: to.String()},
		observe.Field{Key: "failures", Value: cb.failures},
	)
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

package circuitbreaker

import (
	"RagDesk/backend/go/internal/config"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen is a state where a limited number of trial requests are allowed to test the system's recovery.
	HalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "Closed"
	case Open:
		return "Open"
	case HalfOpen:
		return "Half-Open"
	default:
		return "Unknown"
	}
}

var (
	// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned in the HalfOpen state once every trial slot is taken.
	ErrTooManyRequests = errors.New("circuit breaker is half-open and busy")
)

// Option configures a circuit breaker.
type Option func(*options)

// WithStateChange registers a callback run after every state transition.
// It is called without the breaker lock held.
func WithStateChange(fn func(from, to State)) Option {
	return func(o *options) { o.onStateChange = fn }
}

// CircuitBreaker is the interface for the circuit breaker pattern.
type CircuitBreaker interface {
	// Execute runs the given request if the circuit breaker is closed or half-open.
	Execute(req func() (interface{}, error)) (interface{}, error)
	// State returns the current state of the circuit breaker.
	State() State
}

// options holds the configuration for a circuitBreaker.
type options struct {
	failureThreshold     uint32        // Number of failures to trip the circuit.
	successThreshold     uint32        // Number of successes in HalfOpen state to close the circuit.
	timeout              time.Duration // Duration to wait in Open state before transitioning to HalfOpen.
	consecutiveSuccesses uint32        // Current count of consecutive successes.
	consecutiveFailures  uint32        // Current count of consecutive failures.
	lastErrorTime        time.Time     // Time when the circuit was opened.
	halfOpenInFlight     uint32        // Trial requests currently running in HalfOpen state.
	state                State
	onStateChange        func(from, to State)
	mutex                sync.Mutex
}

// New creates a new circuitBreaker with the specified settings.
// failureThreshold: The number of consecutive failures required to open the circuit.
// successThreshold: The number of consecutive successes in the half-open state required to close the circuit.
// timeout: The duration the circuit remains open before transitioning to half-open.
func New(failureThreshold, successThreshold uint32, timeout time.Duration, opts ...Option) CircuitBreaker {
	if failureThreshold == 0 {
		failureThreshold = 1
	}
	if successThreshold == 0 {
		successThreshold = 1
	}
	cb := &options{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// FromConfig creates a circuit breaker from the middleware configuration.
func FromConfig(cfg config.CircuitBreakerConfig, opts ...Option) (CircuitBreaker, error) {
	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout duration: %w", err)
	}
	return New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout, opts...), nil
}

// State returns the current state of the circuit breaker.
func (cb *options) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Execute wraps the execution of a function with the circuit breaker logic.
func (cb *options) Execute(req func() (interface{}, error)) (interface{}, error) {
	cb.mutex.Lock()

	// Check if we should transition from Open to HalfOpen
	var changed func()
	if cb.state == Open && time.Since(cb.lastErrorTime) > cb.timeout {
		changed = cb.setState(HalfOpen)
		cb.consecutiveSuccesses = 0
		cb.halfOpenInFlight = 0
	}

	// Handle request based on state
	switch cb.state {
	case Open:
		cb.mutex.Unlock()
		return nil, ErrCircuitOpen
	case HalfOpen:
		// Only as many trial requests as are needed to close the circuit again.
		if cb.halfOpenInFlight >= cb.successThreshold {
			cb.mutex.Unlock()
			notify(changed)
			return nil, ErrTooManyRequests
		}
		cb.halfOpenInFlight++
		cb.mutex.Unlock()
		notify(changed)
		res, err := req()
		cb.mutex.Lock()
		if cb.halfOpenInFlight > 0 {
			cb.halfOpenInFlight--
		}
		cb.mutex.Unlock()
		if err != nil {
			cb.onFailure()
			return nil, err
		}
		cb.onSuccess()
		return res, nil
	case Closed:
		cb.mutex.Unlock()
		res, err := req()
		if err != nil {
			cb.onFailure()
			return nil, err
		}
		cb.onSuccess()
		return res, nil
	default:
		cb.mutex.Unlock()
		return nil, errors.New("unknown circuit breaker state")
	}
}

// setState changes the state and returns the pending notification. Callers hold the lock.
func (cb *options) setState(to State) func() {
	from := cb.state
	cb.state = to
	if cb.onStateChange == nil || from == to {
		return nil
	}
	fn := cb.onStateChange
	return func() { fn(from, to) }
}

func notify(fn func()) {
	if fn != nil {
		fn()
	}
}

// onSuccess handles the logic when a request succeeds.
func (cb *options) onSuccess() {
	var changed func()
	defer func() { notify(changed) }()
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case HalfOpen:
		cb.consecutiveSuccesses++
		if cb.consecutiveSuccesses >= cb.successThreshold {
			changed = cb.reset()
		}
	case Closed:
		cb.resetFailures()
	}
}

// onFailure handles the logic when a request fails.
func (cb *options) onFailure() {
	var changed func()
	defer func() { notify(changed) }()
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case HalfOpen:
		changed = cb.trip()
	case Closed:
		cb.consecutiveFailures++
		if cb.consecutiveFailures >= cb.failureThreshold {
			changed = cb.trip()
		}
	}
}

// trip opens the circuit.
func (cb *options) trip() func() {
	changed := cb.setState(Open)
	cb.lastErrorTime = time.Now()
	cb.resetFailures()
	cb.consecutiveSuccesses = 0
	return changed
}

// reset closes the circuit and resets all counters.
func (cb *options) reset() func() {
	changed := cb.setState(Closed)
	cb.resetFailures()
	cb.consecutiveSuccesses = 0
	return changed
}

// resetFailures resets the failure counter.
func (cb *options) resetFailures() {
	cb.consecutiveFailures = 0
}

package core

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState string

const (
	// CircuitBreakerStateClosed means calls reach the provider
	CircuitBreakerStateClosed CircuitBreakerState = "closed"
	// CircuitBreakerStateOpen means calls are skipped until the cooldown elapses
	CircuitBreakerStateOpen CircuitBreakerState = "open"
	// CircuitBreakerStateHalfOpen means a single probe call is in flight
	CircuitBreakerStateHalfOpen CircuitBreakerState = "half_open"
)

var (
	// ErrCircuitBreakerOpen is returned by Allow while the breaker is open
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
	// ErrInvalidCircuitBreakerConfig is returned for unusable settings
	ErrInvalidCircuitBreakerConfig = errors.New("invalid circuit breaker configuration")
)

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures uint32
	// Cooldown is how long the circuit stays open before a probe is allowed
	Cooldown time.Duration
}

// Validate checks if the circuit breaker configuration is valid
func (c CircuitBreakerConfig) Validate() error {
	if c.MaxFailures == 0 {
		return errors.New("MaxFailures must be greater than 0")
	}
	if c.Cooldown <= 0 {
		return errors.New("Cooldown must be greater than 0")
	}
	return nil
}

// DefaultCircuitBreakerConfig returns the settings used for content providers
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures: 5,
		Cooldown:    60 * time.Second,
	}
}

// CircuitBreaker stops calling a provider that keeps failing.
// Safe for concurrent use.
type CircuitBreaker struct {
	config   CircuitBreakerConfig
	now      func() time.Time
	mu       sync.Mutex
	state    CircuitBreakerState
	failures uint32
	openedAt time.Time
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) (*CircuitBreaker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCircuitBreakerConfig, err)
	}
	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  CircuitBreakerStateClosed,
	}, nil
}

// Allow returns nil when a call may proceed.
// Once the cooldown has elapsed an open breaker lets exactly one probe through.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerStateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.Cooldown {
			return ErrCircuitBreakerOpen
		}
		cb.state = CircuitBreakerStateHalfOpen
		return nil
	case CircuitBreakerStateHalfOpen:
		return ErrCircuitBreakerOpen
	default:
		return nil
	}
}

// RecordSuccess closes the circuit and clears the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = CircuitBreakerStateClosed
	cb.failures = 0
}

// RecordFailure counts a failure and opens the circuit when the limit is
// reached or a half-open probe fails. It returns the resulting state.
func (cb *CircuitBreaker) RecordFailure() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	if cb.state == CircuitBreakerStateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.state = CircuitBreakerStateOpen
		cb.openedAt = cb.now()
	}
	return cb.state
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count
func (cb *CircuitBreaker) Failures() uint32 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

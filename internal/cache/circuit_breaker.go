package cache

import (
	"errors"
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreaker trips after consecutive cache failures so requests stop
// waiting on a dead Redis. After the cooldown a limited number of probe
// calls decide whether to close again.
type CircuitBreaker struct {
	mu              sync.Mutex
	state           breakerState
	failures        int
	probes          int
	lastFailureTime time.Time

	maxFailures int
	cooldown    time.Duration
	maxProbes   int
}

type CircuitBreakerConfig struct {
	MaxFailures int           `json:"max_failures"`
	Cooldown    time.Duration `json:"cooldown"`
	MaxProbes   int           `json:"max_probes"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures: 5,
		Cooldown:    30 * time.Second,
		MaxProbes:   3,
	}
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}

	return &CircuitBreaker{
		state:       stateClosed,
		maxFailures: config.MaxFailures,
		cooldown:    config.Cooldown,
		maxProbes:   config.MaxProbes,
	}
}

func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrCircuitBreakerOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(cb.lastFailureTime) >= cb.cooldown {
			cb.state = stateHalfOpen
			cb.probes = 0
			return true
		}
		return false
	case stateHalfOpen:
		return cb.probes < cb.maxProbes
	}
	return false
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case stateClosed:
		if cb.failures >= cb.maxFailures {
			cb.state = stateOpen
		}
	case stateHalfOpen:
		cb.state = stateOpen
		cb.probes = 0
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		cb.failures = 0
	case stateHalfOpen:
		cb.probes++
		if cb.probes >= cb.maxProbes {
			cb.state = stateClosed
			cb.failures = 0
			cb.probes = 0
		}
	}
}

func (cb *CircuitBreaker) Stats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stateName := "closed"
	switch cb.state {
	case stateOpen:
		stateName = "open"
	case stateHalfOpen:
		stateName = "half-open"
	}

	return map[string]interface{}{
		"state":            stateName,
		"failure_count":    cb.failures,
		"max_failures":     cb.maxFailures,
		"cooldown_seconds": cb.cooldown.Seconds(),
	}
}

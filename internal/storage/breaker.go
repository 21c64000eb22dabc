package storage

import (
	"context"
	"errors"
	"sync"
	"time"
)

type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerOpen:
		return "open"
	case CircuitBreakerHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

type CircuitBreaker struct {
	mu              sync.Mutex
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	maxFailures      int
	timeout          time.Duration
	halfOpenMaxCalls int

	now func() time.Time
}

type CircuitBreakerConfig struct {
	MaxFailures      int           `json:"max_failures"`
	Timeout          time.Duration `json:"timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}

	return &CircuitBreaker{
		state:            CircuitBreakerClosed,
		maxFailures:      config.MaxFailures,
		timeout:          config.Timeout,
		halfOpenMaxCalls: config.HalfOpenMaxCalls,
		now:              time.Now,
	}
}

// Execute runs fn unless the breaker is open. Errors for which ignore
// returns true count as successes (a missing key is not a broken store).
func (cb *CircuitBreaker) Execute(fn func() error, ignore ...func(error) bool) error {
	if !cb.allow() {
		return ErrCircuitBreakerOpen
	}

	err := fn()
	if err != nil && !ignored(err, ignore) {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return err
}

func ignored(err error, ignore []func(error) bool) bool {
	for _, fn := range ignore {
		if fn(err) {
			return true
		}
	}
	return false
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		return true
	case CircuitBreakerOpen:
		if cb.now().Sub(cb.lastFailureTime) >= cb.timeout {
			cb.state = CircuitBreakerHalfOpen
			cb.successCount = 0
			return true
		}
		return false
	case CircuitBreakerHalfOpen:
		return true
	default:
		return false
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitBreakerClosed:
		if cb.failureCount >= cb.maxFailures {
			cb.state = CircuitBreakerOpen
		}
	case CircuitBreakerHalfOpen:
		cb.state = CircuitBreakerOpen
		cb.successCount = 0
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitBreakerClosed:
		cb.failureCount = 0
	case CircuitBreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.halfOpenMaxCalls {
			cb.state = CircuitBreakerClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}

func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":           cb.state.String(),
		"failure_count":   cb.failureCount,
		"success_count":   cb.successCount,
		"last_failure":    cb.lastFailureTime.Unix(),
		"max_failures":    cb.maxFailures,
		"timeout_seconds": cb.timeout.Seconds(),
	}
}

// BreakerStore stops hammering a failing back end: once the breaker opens,
// reads and writes fail fast with ErrCircuitBreakerOpen until the timeout
// elapses.
type BreakerStore struct {
	next    KeyValueStore
	breaker *CircuitBreaker
}

func NewBreakerStore(next KeyValueStore, breaker *CircuitBreaker) *BreakerStore {
	if breaker == nil {
		breaker = NewCircuitBreaker(nil)
	}
	return &BreakerStore{next: next, breaker: breaker}
}

func isKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

func (s *BreakerStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.breaker.Execute(func() error {
		var err error
		value, err = s.next.Get(ctx, key)
		return err
	}, isKeyNotFound)
	return value, err
}

func (s *BreakerStore) Set(ctx context.Context, key, value string) error {
	return s.breaker.Execute(func() error {
		return s.next.Set(ctx, key, value)
	})
}

// Health goes through the breaker, so once the timeout has elapsed a health
// check is the half-open trial call and a healthy back end closes it again.
func (s *BreakerStore) Health(ctx context.Context) error {
	return s.breaker.Execute(func() error {
		return s.next.Health(ctx)
	})
}

func (s *BreakerStore) Close() error {
	return s.next.Close()
}

func (s *BreakerStore) Breaker() *CircuitBreaker {
	return s.breaker
}

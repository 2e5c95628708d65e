// Copyright 2025 Quartier Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CircuitState is the breaker's position in its state machine.
type CircuitState string

const (
	// StateClosed passes calls through normally.
	StateClosed CircuitState = "CLOSED"
	// StateOpen rejects calls fast until the reset timeout elapses.
	StateOpen CircuitState = "OPEN"
	// StateHalfOpen lets calls through cautiously; two consecutive
	// successes close the circuit, any failure reopens it.
	StateHalfOpen CircuitState = "HALF_OPEN"
)

const (
	defaultFailureThreshold   = 5
	defaultResetTimeout       = 30 * time.Second
	halfOpenSuccessesRequired = 2
)

// CircuitSnapshot is a point-in-time view of a breaker's counters,
// for diagnostics and tests.
type CircuitSnapshot struct {
	State           CircuitState
	FailureCount    int
	SuccessCount    int
	LastFailureTime time.Time
}

// Operation is a fallible call guarded by a breaker or retried with
// backoff. Results are returned through closure capture.
type Operation func(ctx context.Context) error

// CircuitBreaker isolates failures of one named upstream dependency.
// Safe for concurrent use; counters are updated atomically per call.
type CircuitBreaker struct {
	name             string
	failureThreshold int
	resetTimeout     time.Duration
	logger           *slog.Logger

	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// BreakerOption configures a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithFailureThreshold sets how many consecutive failures open the
// circuit. Default is 5.
func WithFailureThreshold(threshold int) BreakerOption {
	return func(b *CircuitBreaker) {
		if threshold > 0 {
			b.failureThreshold = threshold
		}
	}
}

// WithResetTimeout sets how long the circuit stays open after the
// last failure before probing. Default is 30s.
func WithResetTimeout(timeout time.Duration) BreakerOption {
	return func(b *CircuitBreaker) {
		if timeout > 0 {
			b.resetTimeout = timeout
		}
	}
}

// WithBreakerLogger sets a custom logger.
// Default is slog.Default().
func WithBreakerLogger(logger *slog.Logger) BreakerOption {
	return func(b *CircuitBreaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewCircuitBreaker creates a breaker for the named dependency.
func NewCircuitBreaker(name string, opts ...BreakerOption) *CircuitBreaker {
	b := &CircuitBreaker{
		name:             name,
		failureThreshold: defaultFailureThreshold,
		resetTimeout:     defaultResetTimeout,
		logger:           slog.Default(),
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the protected dependency's name.
func (b *CircuitBreaker) Name() string {
	return b.name
}

// Execute runs op under the breaker's protection. While the circuit
// is open and the reset timeout has not elapsed, op is skipped: the
// fallback is invoked if one is provided, otherwise ErrCircuitOpen is
// returned. If op fails and a fallback is provided, the failure is
// still counted before the fallback runs.
func (b *CircuitBreaker) Execute(ctx context.Context, op Operation, fallback Operation) error {
	if proceed := b.beforeCall(); !proceed {
		if fallback != nil {
			b.logger.Warn("circuit open, using fallback", "breaker", b.name)
			return fallback(ctx)
		}
		return fmt.Errorf("%w: %s", ErrCircuitOpen, b.name)
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}

	b.onFailure(err)
	if fallback != nil {
		b.logger.Warn("operation failed, using fallback", "breaker", b.name, "err", err)
		return fallback(ctx)
	}
	return err
}

// beforeCall decides whether the protected operation may run,
// transitioning OPEN to HALF_OPEN once the reset timeout has elapsed.
func (b *CircuitBreaker) beforeCall() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return true
	}
	if time.Since(b.lastFailureTime) > b.resetTimeout {
		b.state = StateHalfOpen
		b.successCount = 0
		b.logger.Info("circuit breaker entering HALF_OPEN state", "breaker", b.name)
		return true
	}
	return false
}

func (b *CircuitBreaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.successCount++
		if b.successCount >= halfOpenSuccessesRequired {
			b.state = StateClosed
			b.failureCount = 0
			b.successCount = 0
			b.logger.Info("circuit breaker CLOSED (recovered)", "breaker", b.name)
		}
		return
	}
	// Normal operation: any success resets the failure run.
	b.failureCount = 0
}

func (b *CircuitBreaker) onFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.successCount = 0
		b.lastFailureTime = time.Now()
		b.logger.Warn("circuit breaker reopened from HALF_OPEN", "breaker", b.name, "err", err)
		return
	}

	b.failureCount++
	b.lastFailureTime = time.Now()
	if b.failureCount >= b.failureThreshold {
		if b.state != StateOpen {
			b.logger.Error("circuit breaker OPENED",
				"breaker", b.name, "failures", b.failureCount, "err", err)
		}
		b.state = StateOpen
	}
}

// Snapshot returns the breaker's current state and counters.
func (b *CircuitBreaker) Snapshot() CircuitSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitSnapshot{
		State:           b.state,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
	}
}

// State returns the breaker's current state.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset forces the circuit closed with zero counters. Manual
// override for operator recovery and tests.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
	b.logger.Info("circuit breaker manually reset", "breaker", b.name)
}

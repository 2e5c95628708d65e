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
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

const (
	defaultMaxRetries   = 3
	defaultInitialDelay = 100 * time.Millisecond
	defaultMaxDelay     = 5 * time.Second
	defaultMultiplier   = 2.0
	jitterFraction      = 0.1
)

type retryConfig struct {
	maxRetries   int
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	logger       *slog.Logger
}

// RetryOption configures RetryWithBackoff.
type RetryOption func(*retryConfig)

// WithMaxRetries sets the retry budget after the initial attempt.
// Default is 3 (4 attempts total).
func WithMaxRetries(n int) RetryOption {
	return func(c *retryConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialDelay sets the first backoff delay. Default is 100ms.
func WithInitialDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		if d > 0 {
			c.initialDelay = d
		}
	}
}

// WithMaxDelay caps the backoff delay. Default is 5s.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		if d > 0 {
			c.maxDelay = d
		}
	}
}

// WithMultiplier sets the backoff growth factor. Default is 2.
func WithMultiplier(m float64) RetryOption {
	return func(c *retryConfig) {
		if m >= 1 {
			c.multiplier = m
		}
	}
}

// WithRetryLogger sets a custom logger. Default is slog.Default().
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(c *retryConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// RetryWithBackoff runs op, retrying transient failures with
// exponential backoff plus up to 10% jitter. Errors carrying HTTP
// status 401, 403 or 404 indicate a permanent client-side condition
// and are never retried. The last error is propagated unchanged when
// the budget is exhausted, so callers can still inspect the original
// cause.
func RetryWithBackoff(ctx context.Context, op Operation, opts ...RetryOption) error {
	cfg := &retryConfig{
		maxRetries:   defaultMaxRetries,
		initialDelay: defaultInitialDelay,
		maxDelay:     defaultMaxDelay,
		multiplier:   defaultMultiplier,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var lastErr error
	delay := cfg.initialDelay

	for attempt := 0; attempt <= cfg.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 0 {
				cfg.logger.Debug("operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.maxRetries {
			break
		}

		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
		sleep := delay + time.Duration(rand.Float64()*jitterFraction*float64(delay))
		cfg.logger.Debug("operation failed, will retry",
			"attempt", attempt+1, "maxRetries", cfg.maxRetries, "delay", sleep, "err", lastErr)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.multiplier)
	}

	return lastErr
}

// IsRetryable reports whether an error is worth retrying. Permanent
// client errors (401, 403, 404) are not; everything else is assumed
// transient.
func IsRetryable(err error) bool {
	status, ok := HTTPStatus(err)
	if !ok {
		return true
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	}
	return true
}

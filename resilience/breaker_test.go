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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream down")

func failingOp(ctx context.Context) error { return errUpstream }
func succeedingOp(ctx context.Context) error { return nil }

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(3))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := b.Execute(ctx, failingOp, nil)
		require.ErrorIs(t, err, errUpstream)
		assert.Equal(t, StateClosed, b.State(), "breaker should stay closed below threshold")
	}

	err := b.Execute(ctx, failingOp, nil)
	require.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateOpen, b.State(), "breaker should open exactly at the threshold")
	assert.Equal(t, 3, b.Snapshot().FailureCount)
}

func TestCircuitBreaker_RejectsFastWhileOpen(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(1), WithResetTimeout(time.Hour))
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failingOp, nil))
	require.Equal(t, StateOpen, b.State())

	invoked := false
	err := b.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	}, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, invoked, "operation must not run while the circuit is open")
}

func TestCircuitBreaker_FallbackWhileOpen(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(1), WithResetTimeout(time.Hour))
	ctx := context.Background()
	require.Error(t, b.Execute(ctx, failingOp, nil))

	fallbackRan := false
	err := b.Execute(ctx, failingOp, func(ctx context.Context) error {
		fallbackRan = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, fallbackRan)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(3))
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failingOp, nil))
	require.Error(t, b.Execute(ctx, failingOp, nil))
	require.NoError(t, b.Execute(ctx, succeedingOp, nil))
	assert.Equal(t, 0, b.Snapshot().FailureCount)

	// The earlier failures no longer count toward the threshold.
	require.Error(t, b.Execute(ctx, failingOp, nil))
	require.Error(t, b.Execute(ctx, failingOp, nil))
	assert.Equal(t, StateClosed, b.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(1), WithResetTimeout(20*time.Millisecond))
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failingOp, nil))
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)

	// First probe succeeds: half-open, not yet closed.
	require.NoError(t, b.Execute(ctx, succeedingOp, nil))
	assert.Equal(t, StateHalfOpen, b.State())

	// Second consecutive success closes the circuit with counters reset.
	require.NoError(t, b.Execute(ctx, succeedingOp, nil))
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.FailureCount)
	assert.Equal(t, 0, snap.SuccessCount)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(1), WithResetTimeout(20*time.Millisecond))
	ctx := context.Background()

	require.Error(t, b.Execute(ctx, failingOp, nil))
	time.Sleep(30 * time.Millisecond)

	require.NoError(t, b.Execute(ctx, succeedingOp, nil))
	require.Equal(t, StateHalfOpen, b.State())

	// A single failure from half-open reopens immediately.
	require.Error(t, b.Execute(ctx, failingOp, nil))
	snap := b.Snapshot()
	assert.Equal(t, StateOpen, snap.State)
	assert.Equal(t, 0, snap.SuccessCount, "success run must reset on half-open failure")
}

func TestCircuitBreaker_Reset(t *testing.T) {
	b := NewCircuitBreaker("test", WithFailureThreshold(1))
	require.Error(t, b.Execute(context.Background(), failingOp, nil))
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, 0, snap.FailureCount)
	assert.True(t, snap.LastFailureTime.IsZero())
}

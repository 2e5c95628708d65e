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

func TestRetryWithBackoff_FirstTrySuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	}, WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, WithInitialDelay(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ExhaustedBudget(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return expectedErr
	}, WithMaxRetries(3), WithInitialDelay(time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "the original error must be propagated unchanged")
	assert.Equal(t, 4, attempts, "1 initial attempt + 3 retries")
}

func TestRetryWithBackoff_PermanentClientErrorNotRetried(t *testing.T) {
	for _, status := range []int{401, 403, 404} {
		attempts := 0
		statusErr := &StatusError{StatusCode: status, URL: "https://example.org"}
		err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
			attempts++
			return statusErr
		}, WithInitialDelay(time.Millisecond))
		require.Error(t, err)
		assert.Equal(t, statusErr, err)
		assert.Equal(t, 1, attempts, "status %d must be attempted exactly once", status)
	}
}

func TestRetryWithBackoff_ServerErrorRetried(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func(ctx context.Context) error {
		attempts++
		return &StatusError{StatusCode: 503, URL: "https://example.org"}
	}, WithMaxRetries(2), WithInitialDelay(time.Millisecond))
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, WithMaxRetries(10), WithInitialDelay(time.Millisecond))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, attempts, 2)
}

func TestHTTPStatus(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), &StatusError{StatusCode: 404, URL: "u"})
	status, ok := HTTPStatus(wrapped)
	require.True(t, ok)
	assert.Equal(t, 404, status)

	_, ok = HTTPStatus(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("timeout")))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 500}))
	assert.True(t, IsRetryable(&StatusError{StatusCode: 429}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 401}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 403}))
	assert.False(t, IsRetryable(&StatusError{StatusCode: 404}))
}

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
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen indicates the breaker rejected the call without
	// attempting the operation.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrInvalidMaxRetries indicates a non-positive retry budget.
	ErrInvalidMaxRetries = errors.New("max retries must not be negative")
)

// StatusError is an error carrying an HTTP status code, so that retry
// policy can distinguish permanent client errors from transient
// failures without string matching.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// HTTPStatus extracts the HTTP status code from an error chain.
// Returns 0, false if the chain carries no StatusError.
func HTTPStatus(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode, true
	}
	return 0, false
}

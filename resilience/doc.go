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


// Package resilience wraps fallible operations with failure isolation
// and retry.
//
// CircuitBreaker protects one named upstream dependency: after a run
// of failures it rejects calls fast instead of piling more load onto a
// dependency that is already down, then probes cautiously before
// resuming normal traffic. RetryWithBackoff recovers transient
// failures locally with exponential backoff and jitter; permanent
// client errors (401, 403, 404) are surfaced immediately.
//
// Each protected dependency owns its own CircuitBreaker instance.
// Sharing one breaker across dependencies mixes their failure
// semantics and is not supported.
package resilience

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


package discovery

import "errors"

var (
	// ErrNoProviders indicates a Discovery was constructed without any
	// provider.
	ErrNoProviders = errors.New("no providers configured")

	// ErrAllProvidersFailed indicates every provider failed for a
	// discovery call; partial provider failures are logged instead.
	ErrAllProvidersFailed = errors.New("all providers failed")

	// ErrFetcherRequired indicates a provider was constructed without
	// a network fetcher.
	ErrFetcherRequired = errors.New("fetcher is required")

	// ErrNoSearchResults indicates every web-search strategy returned
	// an empty result set.
	ErrNoSearchResults = errors.New("no search results")

	// ErrNoPagesReachable indicates no municipal document page could
	// be fetched.
	ErrNoPagesReachable = errors.New("no municipal page reachable")
)

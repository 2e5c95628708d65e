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


package prospect

import "errors"

var (
	// ErrRecordStoreRequired indicates NewPipeline was called without
	// a record store.
	ErrRecordStoreRequired = errors.New("record store is required")

	// ErrReviewStoreRequired indicates NewPipeline was called without
	// a review store.
	ErrReviewStoreRequired = errors.New("review store is required")

	// ErrDiscoveryRequired indicates NewPipeline was called without a
	// discovery orchestrator.
	ErrDiscoveryRequired = errors.New("discovery is required")

	// ErrNoReviews indicates a retrain was requested before any
	// review decision had been recorded.
	ErrNoReviews = errors.New("no reviews recorded")
)

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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidCandidate indicates a CandidateRecord failed validation.
	ErrInvalidCandidate = errors.New("invalid candidate record")

	// ErrEmptyName indicates the Name field is empty.
	ErrEmptyName = errors.New("candidate name cannot be empty")

	// ErrInvalidAgeRange indicates the age bounds are inverted or negative.
	ErrInvalidAgeRange = errors.New("invalid age range")

	// ErrNegativePrice indicates a negative price amount.
	ErrNegativePrice = errors.New("price amount cannot be negative")

	// ErrUnknownSource indicates a source tag outside the known provider set.
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnknownOutcome indicates an outcome other than approved or rejected.
	ErrUnknownOutcome = errors.New("unknown outcome")
)

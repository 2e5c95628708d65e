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

import "fmt"

// ValidateCandidate validates a CandidateRecord according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Stated age bounds must be non-negative and not inverted
//   - Price amount must not be negative
//   - Source, when set, must be a known provider tag
//
// NOT validated (populated later in the pipeline):
//   - Id (0 is valid until Normalize assigns the content hash)
//   - Contact channels (candidates without contacts are scorable)
func ValidateCandidate(candidate *CandidateRecord) error {
	if candidate == nil {
		return fmt.Errorf("%w: candidate is nil", ErrInvalidCandidate)
	}

	if candidate.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrEmptyName)
	}

	if err := validateAgeRange(candidate.Age); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}

	if candidate.Price.Amount < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, ErrNegativePrice)
	}

	if candidate.Source != "" {
		if err := ValidateSource(candidate.Source); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
		}
	}

	return nil
}

func validateAgeRange(age AgeRange) error {
	if age.HasMin && age.Min < 0 {
		return fmt.Errorf("%w: min %d", ErrInvalidAgeRange, age.Min)
	}
	if age.HasMax && age.Max < 0 {
		return fmt.Errorf("%w: max %d", ErrInvalidAgeRange, age.Max)
	}
	if age.HasMin && age.HasMax && age.Min > age.Max {
		return fmt.Errorf("%w: min %d > max %d", ErrInvalidAgeRange, age.Min, age.Max)
	}
	return nil
}

// ValidateSource validates that a Source has a known provider value.
func ValidateSource(source Source) error {
	switch source {
	case SourceRegistry, SourceDocuments, SourceMetaSearch, SourceWebSearch:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownSource, source)
}

// ValidateOutcome validates that an Outcome is approved or rejected.
func ValidateOutcome(outcome Outcome) error {
	if outcome != OutcomeApproved && outcome != OutcomeRejected {
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
	return nil
}

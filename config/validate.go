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


package config

import "fmt"

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors.
func Validate(cfg *Config) []error {
	var errs []error

	if cfg.Area.Label == "" {
		errs = append(errs, ValidationError{"area.label", "required"})
	}
	if cfg.Area.PostalCode == "" {
		errs = append(errs, ValidationError{"area.postal_code", "required"})
	}
	if _, err := cfg.Area.TargetArea(); err != nil {
		errs = append(errs, ValidationError{"area.mention_pattern", "must be a valid regexp"})
	}

	if cfg.Scoring.AcceptThreshold < 0 || cfg.Scoring.AcceptThreshold > 10 {
		errs = append(errs, ValidationError{"scoring.accept_threshold", "must be between 0 and 10"})
	}

	if cfg.Strategy.HistoryLimit < 1 {
		errs = append(errs, ValidationError{"strategy.history_limit", "must be at least 1"})
	}
	if cfg.Strategy.RejectionWindow < 0 {
		errs = append(errs, ValidationError{"strategy.rejection_window", "must not be negative"})
	}
	if cfg.Strategy.MaxRejections < 1 {
		errs = append(errs, ValidationError{"strategy.max_rejections", "must be at least 1"})
	}

	// Metered search is optional, but credentials must come in pairs.
	if (cfg.Discovery.MeteredSearch.APIKey == "") != (cfg.Discovery.MeteredSearch.CX == "") {
		errs = append(errs, ValidationError{"discovery.metered_search", "api_key and cx must be set together"})
	}

	if cfg.Storage.Path == "" {
		errs = append(errs, ValidationError{"storage.path", "required"})
	}

	return errs
}

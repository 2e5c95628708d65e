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

import (
	"os"
	"regexp"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment
// variable values. Unset variables are left as-is.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return match
	})
}

// expandConfigEnvVars expands environment variables in config string
// fields that commonly carry secrets or machine-specific paths.
func expandConfigEnvVars(cfg *Config) {
	cfg.Discovery.MeteredSearch.APIKey = expandEnvVars(cfg.Discovery.MeteredSearch.APIKey)
	cfg.Discovery.MeteredSearch.CX = expandEnvVars(cfg.Discovery.MeteredSearch.CX)
	cfg.Storage.Path = expandEnvVars(cfg.Storage.Path)
}

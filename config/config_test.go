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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartierlab/prospect/scoring"
	"github.com/quartierlab/prospect/strategy"
)

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("PROSPECT_TEST_VAR", "secret")

	assert.Equal(t, "secret", expandEnvVars("${PROSPECT_TEST_VAR}"))
	assert.Equal(t, "${UNSET_PROSPECT_VAR}", expandEnvVars("${UNSET_PROSPECT_VAR}"))
	assert.Equal(t, "key=secret", expandEnvVars("key=${PROSPECT_TEST_VAR}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "20e", cfg.Area.Label)
	assert.Equal(t, "75020", cfg.Area.PostalCode)
	assert.Equal(t, scoring.DefaultAcceptThreshold, cfg.Scoring.AcceptThreshold)
	assert.Equal(t, strategy.DefaultHistoryLimit, cfg.Strategy.HistoryLimit)
	assert.Empty(t, Validate(cfg))
}

func TestLoadAppliesDefaultsAndEnv(t *testing.T) {
	t.Setenv("PROSPECT_SEARCH_KEY", "k123")

	dir := t.TempDir()
	path := filepath.Join(dir, "prospect.yaml")
	data := `
area:
  label: "11e"
  postal_code: "75011"
scoring:
  accept_threshold: 6.5
discovery:
  metered_search:
    api_key: "${PROSPECT_SEARCH_KEY}"
    cx: "cx-1"
vocabulary:
  activity:
    - "cirque"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "11e", cfg.Area.Label)
	assert.Equal(t, "75011", cfg.Area.PostalCode)
	assert.Equal(t, 6.5, cfg.Scoring.AcceptThreshold)
	assert.Equal(t, "k123", cfg.Discovery.MeteredSearch.APIKey)
	assert.Equal(t, strategy.DefaultMaxRejections, cfg.Strategy.MaxRejections)
	assert.Contains(t, cfg.Vocabulary.Vocabulary().Activity, "cirque")
	assert.Empty(t, Validate(cfg))
}

func TestValidateReportsErrors(t *testing.T) {
	cfg := Default()
	cfg.Scoring.AcceptThreshold = 42
	cfg.Discovery.MeteredSearch.APIKey = "key-without-cx"
	cfg.Area.MentionPattern = "("

	errs := Validate(cfg)
	require.Len(t, errs, 3)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

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


// Package config loads the optional YAML configuration file. Every
// field has a working default, so running without a file is fully
// supported.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/quartierlab/prospect/features"
	"github.com/quartierlab/prospect/scoring"
	"github.com/quartierlab/prospect/strategy"
)

// Config represents the full application configuration.
type Config struct {
	Area       AreaConfig       `yaml:"area"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Storage    StorageConfig    `yaml:"storage"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
}

// AreaConfig describes the geographic area candidates are collected
// for.
type AreaConfig struct {
	Label          string   `yaml:"label"`           // e.g. "20e"
	PostalCode     string   `yaml:"postal_code"`     // e.g. "75020"
	CityLabel      string   `yaml:"city_label"`      // e.g. "paris 20"
	MentionPattern string   `yaml:"mention_pattern"` // regexp matching area references
	Neighborhoods  []string `yaml:"neighborhoods,omitempty"`
}

// TargetArea builds the feature extractor's area description.
func (a AreaConfig) TargetArea() (features.TargetArea, error) {
	defaults := features.DefaultTargetArea()
	area := features.TargetArea{
		Label:         a.Label,
		PostalCode:    a.PostalCode,
		CityLabel:     a.CityLabel,
		Mention:       defaults.Mention,
		Neighborhoods: a.Neighborhoods,
	}
	if len(area.Neighborhoods) == 0 {
		area.Neighborhoods = defaults.Neighborhoods
	}
	if a.MentionPattern != "" {
		mention, err := regexp.Compile("(?i)" + a.MentionPattern)
		if err != nil {
			return features.TargetArea{}, fmt.Errorf("compiling area.mention_pattern: %w", err)
		}
		area.Mention = mention
	}
	return area, nil
}

// ScoringConfig contains quality scorer settings.
type ScoringConfig struct {
	AcceptThreshold float64 `yaml:"accept_threshold"`
}

// StrategyConfig contains adaptive search strategy settings.
type StrategyConfig struct {
	HistoryLimit    int `yaml:"history_limit"`
	RejectionWindow int `yaml:"rejection_window"`
	MaxRejections   int `yaml:"max_rejections"`
}

// MeteredSearchConfig contains metered search API credentials.
type MeteredSearchConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
	CX     string `yaml:"cx"`
}

// DiscoveryConfig contains provider endpoints and credentials.
type DiscoveryConfig struct {
	OpenDataURL   string              `yaml:"open_data_url"`
	SPARQLURL     string              `yaml:"sparql_url"`
	MetaSearchURL string              `yaml:"meta_search_url"`
	MeteredSearch MeteredSearchConfig `yaml:"metered_search"`
}

// StorageConfig contains storage backend settings.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// VocabularyConfig extends the built-in keyword vocabulary. Terms
// listed here are appended to the defaults, never replacing them.
type VocabularyConfig struct {
	Kids            []string `yaml:"kids,omitempty"`
	Activity        []string `yaml:"activity,omitempty"`
	AdultOnly       []string `yaml:"adult_only,omitempty"`
	Exclusion       []string `yaml:"exclusion,omitempty"`
	ExcludedDomains []string `yaml:"excluded_domains,omitempty"`
}

// Vocabulary returns the built-in vocabulary extended with the
// configured terms.
func (v VocabularyConfig) Vocabulary() features.Vocabulary {
	vocab := features.DefaultVocabulary()
	vocab.Kids = append(vocab.Kids, v.Kids...)
	vocab.Activity = append(vocab.Activity, v.Activity...)
	vocab.AdultOnly = append(vocab.AdultOnly, v.AdultOnly...)
	vocab.Exclusion = append(vocab.Exclusion, v.Exclusion...)
	vocab.ExcludedDomains = append(vocab.ExcludedDomains, v.ExcludedDomains...)
	return vocab
}

// Load reads and parses config from the given path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandConfigEnvVars(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// FindConfigPath looks for config in common locations.
func FindConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}

	paths := []string{
		"prospect.yaml",
		"prospect.yml",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		homePath := filepath.Join(home, ".config", "prospect", "config.yaml")
		if _, err := os.Stat(homePath); err == nil {
			return homePath
		}
	}

	return ""
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	defaults := features.DefaultTargetArea()
	if cfg.Area.Label == "" {
		cfg.Area.Label = defaults.Label
	}
	if cfg.Area.PostalCode == "" {
		cfg.Area.PostalCode = defaults.PostalCode
	}
	if cfg.Area.CityLabel == "" {
		cfg.Area.CityLabel = defaults.CityLabel
	}

	if cfg.Scoring.AcceptThreshold == 0 {
		cfg.Scoring.AcceptThreshold = scoring.DefaultAcceptThreshold
	}
	if cfg.Strategy.HistoryLimit == 0 {
		cfg.Strategy.HistoryLimit = strategy.DefaultHistoryLimit
	}
	if cfg.Strategy.RejectionWindow == 0 {
		cfg.Strategy.RejectionWindow = strategy.DefaultRejectionWindow
	}
	if cfg.Strategy.MaxRejections == 0 {
		cfg.Strategy.MaxRejections = strategy.DefaultMaxRejections
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "prospect.db"
	}
}

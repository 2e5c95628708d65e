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


package features

import "strings"

// Vocabulary is the keyword set shared by the feature extractor, the
// rule-based scorer and the discovery relevance filter. The first ten
// kids keywords and first ten activity keywords occupy fixed feature
// dimensions, so their order is part of the feature schema.
type Vocabulary struct {
	// Kids holds child-relevance keywords (French and English).
	Kids []string
	// Activity holds activity and organization keywords.
	Activity []string
	// AdultOnly holds adult-only indicators (negative signal).
	AdultOnly []string
	// GenericNonprofit holds generic nonprofit terms, a negative
	// signal when no activity keyword accompanies them.
	GenericNonprofit []string
	// Exclusion holds terms that disqualify a discovered text outright
	// (newsletter noise, generic municipal service pages, daycare).
	Exclusion []string
	// ExcludedDomains holds website domains that never belong to a
	// community organization (platforms, government portals).
	ExcludedDomains []string
}

// DefaultVocabulary returns the built-in French/English keyword set.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Kids: []string{
			"enfant", "enfants", "kids", "children", "jeune", "jeunes", "youth",
			"ado", "adolescent", "petit", "petits", "junior", "scolaire",
			"extracurriculaire", "centre de loisirs", "colonie", "camp",
		},
		Activity: []string{
			"sport", "sports", "activité", "activités", "activity", "activities",
			"club", "clubs", "association", "associations", "cours", "lesson",
			"atelier", "ateliers", "workshop", "training", "entraînement",
		},
		AdultOnly: []string{
			"senior", "séniors", "adulte", "adultes", "adult", "retraité",
			"retraités", "retired", "troisième âge",
		},
		GenericNonprofit: []string{
			"bénévolat", "volunteer", "charity", "charité", "fondation",
			"foundation", "aide", "help", "soutien", "support",
		},
		Exclusion: []string{
			"newsletter", "lettre d'information", "abonnement",
			"mentions légales", "politique de cookies", "plan du site",
			"prendre rendez-vous", "horaires et informations pratiques",
			"crèche", "crèches", "logement social", "demande de logement",
		},
		ExcludedDomains: []string{
			"youtube.com", "youtu.be", "facebook.com", "twitter.com",
			"instagram.com", "linkedin.com", "google.com", "gmail.com",
			"service-public.fr", "gouv.fr", "paris.fr", "mairie",
			"play.google.com", "apps.apple.com", "openstreetmap",
		},
	}
}

// ContainsAny reports whether text contains any of the keywords.
// Matching is substring-based over lowercased text, as the sources
// are noisy free text where token boundaries are unreliable.
func ContainsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// IsRelevant reports whether a text passes the discovery relevance
// gate: at least one kids or activity keyword, no adult-only
// indicator, no exclusion term.
func (v Vocabulary) IsRelevant(text string) bool {
	lower := strings.ToLower(text)
	if ContainsAny(lower, v.Exclusion) {
		return false
	}
	if ContainsAny(lower, v.AdultOnly) {
		return false
	}
	return ContainsAny(lower, v.Kids) || ContainsAny(lower, v.Activity)
}

// IsExcludedDomain reports whether a website URL points at a domain
// that never hosts a community organization of its own.
func (v Vocabulary) IsExcludedDomain(website string) bool {
	lower := strings.ToLower(website)
	for _, domain := range v.ExcludedDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}
